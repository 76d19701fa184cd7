package authz

// RoleName identifies one of the fixed hierarchy roles
type RoleName string

const (
	RoleOwner RoleName = "OWNER" // Sees own org plus all descendant orgs
	RoleAdmin RoleName = "ADMIN" // Scoped to own org only
	RoleUser  RoleName = "USER"  // Scoped to own assignments
)

// KnownRoles returns the fixed role catalog in seeding order
func KnownRoles() []RoleName {
	return []RoleName{RoleOwner, RoleAdmin, RoleUser}
}

// IsKnown reports whether the role is part of the fixed catalog.
// Anything else is treated as a guest role.
func (r RoleName) IsKnown() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// PermissionName identifies an atomic capability
type PermissionName string

const (
	// User permissions
	PermCreateUser  PermissionName = "create_user"
	PermReadUser    PermissionName = "read_user"
	PermUpdateUser  PermissionName = "update_user"
	PermDeleteUser  PermissionName = "delete_user"
	PermAssignRoles PermissionName = "assign_roles"

	// Organization permissions
	PermCreateOrganization PermissionName = "create_organization"
	PermReadOrganization   PermissionName = "read_organization"
	PermUpdateOrganization PermissionName = "update_organization"
	PermDeleteOrganization PermissionName = "delete_organization"

	// Task permissions
	PermCreateTask PermissionName = "create_task"
	PermReadTask   PermissionName = "read_task"
	PermUpdateTask PermissionName = "update_task"
	PermDeleteTask PermissionName = "delete_task"

	// Audit log permissions
	PermReadAuditLog PermissionName = "read_audit_log"

	// Self permissions
	PermReadOwnTask      PermissionName = "read_own_task"
	PermUpdateOwnTask    PermissionName = "update_own_task"
	PermDeleteOwnTask    PermissionName = "delete_own_task"
	PermReadOwnProfile   PermissionName = "read_own_profile"
	PermUpdateOwnProfile PermissionName = "update_own_profile"
)

// AllPermissions returns the full permission catalog in seeding order
func AllPermissions() []PermissionName {
	return []PermissionName{
		PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser, PermAssignRoles,
		PermCreateOrganization, PermReadOrganization, PermUpdateOrganization, PermDeleteOrganization,
		PermCreateTask, PermReadTask, PermUpdateTask, PermDeleteTask,
		PermReadAuditLog,
		PermReadOwnTask, PermUpdateOwnTask, PermDeleteOwnTask,
		PermReadOwnProfile, PermUpdateOwnProfile,
	}
}

// permissionDescriptions documents each capability for the seeded catalog
var permissionDescriptions = map[PermissionName]string{
	PermCreateUser:         "Allows creating new users",
	PermReadUser:           "Allows reading user data",
	PermUpdateUser:         "Allows updating user data",
	PermDeleteUser:         "Allows deleting users",
	PermAssignRoles:        "Allows assigning roles to users",
	PermCreateOrganization: "Allows creating new organizations",
	PermReadOrganization:   "Allows reading organization data",
	PermUpdateOrganization: "Allows updating organization data",
	PermDeleteOrganization: "Allows deleting organizations",
	PermCreateTask:         "Allows creating new tasks",
	PermReadTask:           "Allows reading task data",
	PermUpdateTask:         "Allows updating task data",
	PermDeleteTask:         "Allows deleting tasks",
	PermReadAuditLog:       "Allows reading audit logs",
	PermReadOwnTask:        "Allows reading the user's own tasks",
	PermUpdateOwnTask:      "Allows updating the user's own tasks",
	PermDeleteOwnTask:      "Allows deleting the user's own tasks",
	PermReadOwnProfile:     "Allows reading the user's own profile",
	PermUpdateOwnProfile:   "Allows updating the user's own profile",
}

// roleDescriptions documents each seeded role
var roleDescriptions = map[RoleName]string{
	RoleOwner: "Owner with hierarchy-wide access",
	RoleAdmin: "Administrator scoped to one organization",
	RoleUser:  "Standard user with basic access",
}

// RolePermissions returns the authoritative permission set for a role.
// OWNER holds every permission in the catalog; unrecognized roles fall
// through to the guest set.
func RolePermissions(role RoleName) []PermissionName {
	switch role {
	case RoleOwner:
		return AllPermissions()
	case RoleAdmin:
		return []PermissionName{
			PermReadUser,
			PermCreateTask, PermReadTask, PermUpdateTask,
			PermReadOrganization,
			PermReadAuditLog,
			PermReadOwnTask, PermUpdateOwnTask,
			PermReadOwnProfile, PermUpdateOwnProfile,
		}
	case RoleUser:
		return []PermissionName{
			PermCreateTask, PermReadTask,
			PermReadOwnTask, PermUpdateOwnTask, PermDeleteOwnTask,
			PermReadOwnProfile, PermUpdateOwnProfile,
		}
	default:
		return []PermissionName{PermReadOwnProfile}
	}
}

// Role is a persisted named set of permissions
type Role struct {
	ID          string           `json:"id"`
	Name        RoleName         `json:"name"`
	Description string           `json:"description,omitempty"`
	Permissions []PermissionName `json:"permissions"`
}

// Permission is a persisted atomic capability
type Permission struct {
	ID          string         `json:"id"`
	Name        PermissionName `json:"name"`
	Description string         `json:"description,omitempty"`
}
