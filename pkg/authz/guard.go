package authz

// Requirement is the access restriction attached to a protected operation.
// A zero Requirement declares no restriction.
type Requirement struct {
	Roles       []RoleName
	Permissions []PermissionName
}

// IsZero reports whether the requirement declares no restriction
func (r Requirement) IsZero() bool {
	return len(r.Roles) == 0 && len(r.Permissions) == 0
}

// RequireRoles builds a requirement satisfied by holding any listed role
func RequireRoles(roles ...RoleName) Requirement {
	return Requirement{Roles: roles}
}

// RequirePermissions builds a requirement satisfied only by holding every
// listed permission
func RequirePermissions(perms ...PermissionName) Requirement {
	return Requirement{Permissions: perms}
}

// Authorize decides allow/deny for a principal against a requirement.
//
// Rules, in order: an empty requirement allows everyone, including
// unauthenticated callers; otherwise a missing principal is denied; role
// requirements use ANY-match while permission requirements use ALL-match.
// The asymmetry is deliberate: roles are alternatives, permissions are a
// conjunction of capabilities.
//
// Pure function, safe to call concurrently.
func Authorize(req Requirement, p *Principal) bool {
	if req.IsZero() {
		return true
	}
	if p == nil {
		return false
	}

	if len(req.Roles) > 0 {
		hasRole := false
		for _, role := range req.Roles {
			if p.HasRole(role) {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false
		}
	}

	if len(req.Permissions) > 0 {
		for _, perm := range req.Permissions {
			if !p.HasPermission(perm) {
				return false
			}
		}
	}

	return true
}
