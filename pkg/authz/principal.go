package authz

// Principal is the authenticated actor for one request. It is constructed
// once per request from verified token claims plus live role/permission
// state and is immutable for the request's duration.
type Principal struct {
	ID             string           `json:"id"`
	Email          string           `json:"email,omitempty"`
	OrganizationID string           `json:"organization_id,omitempty"` // empty means no organization
	Roles          []RoleName       `json:"roles"`
	Permissions    []PermissionName `json:"permissions"`
}

// HasRole reports whether the principal holds the given role
func (p *Principal) HasRole(role RoleName) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds the given permission
func (p *Principal) HasPermission(perm PermissionName) bool {
	for _, pp := range p.Permissions {
		if pp == perm {
			return true
		}
	}
	return false
}

// PrimaryRolePolicy selects the single role used by record-scoping logic
// when a principal holds several roles. In practice users are assigned one
// role, but the data model allows many, so the selection is explicit.
type PrimaryRolePolicy int

const (
	// PolicyFirstListed takes the first role in assignment order
	PolicyFirstListed PrimaryRolePolicy = iota
	// PolicyHighestPrivilege takes the most privileged role held
	PolicyHighestPrivilege
)

// rolePrecedence orders roles by privilege, highest first
var rolePrecedence = []RoleName{RoleOwner, RoleAdmin, RoleUser}

// PrimaryRole resolves the effective role for scope decisions. An empty
// role list yields the empty RoleName, which downstream scoping treats as
// an unrecognized (guest) role.
func (p *Principal) PrimaryRole(policy PrimaryRolePolicy) RoleName {
	if len(p.Roles) == 0 {
		return ""
	}
	if policy == PolicyHighestPrivilege {
		for _, candidate := range rolePrecedence {
			if p.HasRole(candidate) {
				return candidate
			}
		}
	}
	return p.Roles[0]
}
