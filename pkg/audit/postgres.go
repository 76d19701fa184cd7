package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/observability"
)

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewPostgresStore creates an audit store backed by PostgreSQL
func NewPostgresStore(db *sql.DB, metrics *observability.Metrics) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &PostgresStore{db: db, metrics: metrics}
	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_logs table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		action VARCHAR(50) NOT NULL,
		entity_type VARCHAR(100) NOT NULL,
		entity_id VARCHAR(255),
		old_value JSONB,
		new_value JSONB,
		user_id VARCHAR(255),
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record persists one audit entry
func (s *PostgresStore) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var oldValue, newValue interface{}
	if entry.OldValue != nil {
		oldValue = []byte(entry.OldValue)
	}
	if entry.NewValue != nil {
		newValue = []byte(entry.NewValue)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, old_value, new_value, user_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Action, entry.EntityType, entry.EntityID,
		oldValue, newValue, entry.UserID, entry.Timestamp)
	if err != nil {
		s.recordWrite(entry.Action, "failure")
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	s.recordWrite(entry.Action, "success")
	return nil
}

func (s *PostgresStore) recordWrite(action Action, status string) {
	if s.metrics != nil {
		s.metrics.AuditWritesTotal.WithLabelValues(string(action), status).Inc()
	}
}

const defaultListLimit = 100

// List returns entries most recent first, bounded by filter.Limit
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, action, entity_type, entity_id, old_value, new_value, user_id, timestamp FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", argPos)
		args = append(args, filter.EntityType)
		argPos++
	}
	if filter.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argPos)
		args = append(args, filter.EntityID)
		argPos++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argPos)
		args = append(args, filter.UserID)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var entityID, userID sql.NullString
		var oldValue, newValue []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &entityID,
			&oldValue, &newValue, &userID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.EntityID = entityID.String
		e.UserID = userID.String
		e.OldValue = oldValue
		e.NewValue = newValue
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup deletes entries older than the cutoff
func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE timestamp < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up audit entries: %w", err)
	}
	return result.RowsAffected()
}
