package orgs

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an organization store backed by PostgreSQL
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &PostgresStore{db: db}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure organizations table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		description TEXT,
		parent_id UUID REFERENCES organizations(id),
		level INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_organizations_parent_id ON organizations(parent_id);
	`
	_, err := s.db.Exec(query)
	return err
}

const orgColumns = `id, name, description, parent_id, level, created_at, updated_at`

func scanOrg(row interface{ Scan(...interface{}) error }) (*Organization, error) {
	var org Organization
	var description, parentID sql.NullString
	if err := row.Scan(&org.ID, &org.Name, &description, &parentID, &org.Level,
		&org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.Description = description.String
	org.ParentID = parentID.String
	return &org, nil
}

// List returns all organizations
func (s *PostgresStore) List(ctx context.Context) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

// Get returns one organization by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	org, err := scanOrg(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// Create inserts a new organization
func (s *PostgresStore) Create(ctx context.Context, org *Organization) error {
	var parentID interface{}
	if org.ParentID != "" {
		parentID = org.ParentID
	}
	if org.Level == 0 {
		org.Level = 1
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (id, name, description, parent_id, level)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		org.ID, org.Name, org.Description, parentID, org.Level).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// SetParent re-parents an organization
func (s *PostgresStore) SetParent(ctx context.Context, id, parentID string) error {
	var parent interface{}
	if parentID != "" {
		parent = parentID
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET parent_id = $1, updated_at = NOW() WHERE id = $2`,
		parent, id)
	if err != nil {
		return fmt.Errorf("failed to re-parent organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to re-parent organization: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
