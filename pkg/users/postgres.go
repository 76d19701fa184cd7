package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/taskhive/taskhive/pkg/authz"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a user store backed by PostgreSQL
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &PostgresStore{db: db}
	if err := store.ensureTables(); err != nil {
		return nil, fmt.Errorf("failed to ensure user tables: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) ensureTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		first_name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		organization_id UUID,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_roles (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, role_id)
	);

	CREATE INDEX IF NOT EXISTS idx_users_organization_id ON users(organization_id);
	`
	_, err := s.db.Exec(query)
	return err
}

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.password_hash, u.organization_id, u.created_at, u.updated_at`

func (s *PostgresStore) scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	var orgID sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&orgID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.OrganizationID = orgID.String
	return &u, nil
}

// GetByID loads a user and their ordered role assignments
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	user, err := s.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.loadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail loads a user by email, including the password hash
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
	user, err := s.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if err := s.loadRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *PostgresStore) loadRoles(ctx context.Context, user *User) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.position ASC`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load user roles: %w", err)
	}
	defer rows.Close()

	user.Roles = nil
	for rows.Next() {
		var name authz.RoleName
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan user role: %w", err)
		}
		user.Roles = append(user.Roles, name)
	}
	return rows.Err()
}

// Create inserts a new user and its role assignments
func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	var orgID interface{}
	if user.OrganizationID != "" {
		orgID = user.OrganizationID
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash, orgID).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrEmailTaken
		}
		// sqlmock and other drivers don't produce pq errors
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	if len(user.Roles) > 0 {
		if err := s.SetRoles(ctx, user.ID, user.Roles); err != nil {
			return err
		}
	}
	return nil
}

// SetOrganization moves a user into an organization
func (s *PostgresStore) SetOrganization(ctx context.Context, userID, orgID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET organization_id = $1, updated_at = NOW() WHERE id = $2`,
		orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to set user organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set user organization: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRoles replaces a user's role assignments, preserving list order
func (s *PostgresStore) SetRoles(ctx context.Context, userID string, roles []authz.RoleName) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin role update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for i, role := range roles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id, position)
			SELECT $1, id, $3 FROM roles WHERE name = $2`,
			userID, role, i); err != nil {
			return fmt.Errorf("failed to assign role %q: %w", role, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit role update: %w", err)
	}
	return nil
}

// List returns all users without role assignments loaded
func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u ORDER BY u.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}
