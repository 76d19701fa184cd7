package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/observability"
)

// RoleStore persists roles and their permission grants
type RoleStore interface {
	// ListRoles returns all roles with their permission sets loaded
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, role *Role) error
	// GrantPermission links a permission to a role; granting an existing
	// link is a no-op
	GrantPermission(ctx context.Context, roleID, permissionID string) error
}

// PermissionStore persists the permission catalog
type PermissionStore interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, perm *Permission) error
}

// Seeder populates the role/permission catalog at startup. Seeding is
// idempotent and reconciling: missing permissions and roles are created,
// missing role grants are added, and grants added by an operator are left
// alone. Grants are never removed.
type Seeder struct {
	roles  RoleStore
	perms  PermissionStore
	logger *observability.Logger
}

// NewSeeder creates a catalog seeder
func NewSeeder(roles RoleStore, perms PermissionStore, logger *observability.Logger) *Seeder {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Seeder{roles: roles, perms: perms, logger: logger}
}

// Seed reconciles the catalog with the fixed role/permission tables. Any
// persistence error is logged and swallowed: an incomplete catalog must
// not prevent the service from starting.
func (s *Seeder) Seed(ctx context.Context) {
	if err := s.seed(ctx); err != nil {
		s.logger.WithError(err).Error("seeding roles and permissions failed")
		return
	}
	s.logger.Info("roles and permissions seeded")
}

func (s *Seeder) seed(ctx context.Context) error {
	existing, err := s.perms.ListPermissions(ctx)
	if err != nil {
		return err
	}
	permIDs := make(map[PermissionName]string, len(existing))
	for _, p := range existing {
		permIDs[p.Name] = p.ID
	}

	for _, name := range AllPermissions() {
		if _, ok := permIDs[name]; ok {
			continue
		}
		perm := &Permission{
			ID:          uuid.NewString(),
			Name:        name,
			Description: permissionDescriptions[name],
		}
		if err := s.perms.CreatePermission(ctx, perm); err != nil {
			return err
		}
		permIDs[name] = perm.ID
		s.logger.WithField("permission", string(name)).Info("permission created")
	}

	roles, err := s.roles.ListRoles(ctx)
	if err != nil {
		return err
	}
	byName := make(map[RoleName]*Role, len(roles))
	for i := range roles {
		byName[roles[i].Name] = &roles[i]
	}

	for _, name := range KnownRoles() {
		role := byName[name]
		if role == nil {
			role = &Role{
				ID:          uuid.NewString(),
				Name:        name,
				Description: roleDescriptions[name],
			}
			if err := s.roles.CreateRole(ctx, role); err != nil {
				return err
			}
			s.logger.WithField("role", string(name)).Info("role created")
		}

		held := make(map[PermissionName]bool, len(role.Permissions))
		for _, p := range role.Permissions {
			held[p] = true
		}
		for _, want := range RolePermissions(name) {
			if held[want] {
				continue
			}
			permID, ok := permIDs[want]
			if !ok {
				continue
			}
			if err := s.roles.GrantPermission(ctx, role.ID, permID); err != nil {
				return err
			}
		}
	}

	return nil
}
