package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements RoleStore and PermissionStore on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a catalog store backed by PostgreSQL
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &PostgresStore{db: db}
	if err := store.ensureTables(); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog tables: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) ensureTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS permissions (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS roles (
		id UUID PRIMARY KEY,
		name VARCHAR(50) NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS role_permissions (
		role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		permission_id UUID NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		PRIMARY KEY (role_id, permission_id)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// ListPermissions returns the full permission catalog
func (s *PostgresStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		p.Description = description.String
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a new permission
func (s *PostgresStore) CreatePermission(ctx context.Context, perm *Permission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permissions (id, name, description) VALUES ($1, $2, $3)`,
		perm.ID, perm.Name, perm.Description)
	if err != nil {
		return fmt.Errorf("failed to create permission %q: %w", perm.Name, err)
	}
	return nil
}

// ListRoles returns all roles with their permission names loaded
func (s *PostgresStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		var description sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &description); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		r.Description = description.String
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		perms, err := s.rolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

func (s *PostgresStore) rolePermissions(ctx context.Context, roleID string) ([]PermissionName, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	var perms []PermissionName
	for rows.Next() {
		var name PermissionName
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role permission: %w", err)
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

// CreateRole inserts a new role
func (s *PostgresStore) CreateRole(ctx context.Context, role *Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)`,
		role.ID, role.Name, role.Description)
	if err != nil {
		return fmt.Errorf("failed to create role %q: %w", role.Name, err)
	}
	return nil
}

// GrantPermission links a permission to a role; existing grants are kept
func (s *PostgresStore) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`,
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// RoleByName loads a single role with its permissions
func (s *PostgresStore) RoleByName(ctx context.Context, name RoleName) (*Role, error) {
	var r Role
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM roles WHERE name = $1`, name).
		Scan(&r.ID, &r.Name, &description)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	r.Description = description.String
	perms, err := s.rolePermissions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Permissions = perms
	return &r, nil
}
