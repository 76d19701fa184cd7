package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists tasks in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the store and ensures its schema exists
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure tasks schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'TODO',
			priority TEXT NOT NULL DEFAULT 'MEDIUM',
			organization_id UUID,
			assignee_id UUID,
			creator_id UUID,
			reporter_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_organization ON tasks(organization_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
	`)
	return err
}

const taskColumns = "id, title, description, status, priority, organization_id, assignee_id, creator_id, reporter_id, created_at, updated_at"

func scanTask(row interface{ Scan(...interface{}) error }) (*Task, error) {
	var t Task
	var orgID, assigneeID, creatorID, reporterID sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&orgID, &assigneeID, &creatorID, &reporterID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.OrganizationID = orgID.String
	t.AssigneeID = assigneeID.String
	t.CreatorID = creatorID.String
	t.ReporterID = reporterID.String
	return &t, nil
}

// nullable maps the empty string to SQL NULL for UUID columns
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Get returns a task by id
func (s *PostgresStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Create inserts a new task
func (s *PostgresStore) Create(ctx context.Context, task *Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, organization_id, assignee_id, creator_id, reporter_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		nullable(task.OrganizationID), nullable(task.AssigneeID),
		nullable(task.CreatorID), nullable(task.ReporterID),
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update overwrites the task row
func (s *PostgresStore) Update(ctx context.Context, task *Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5,
			organization_id = $6, assignee_id = $7, reporter_id = $8, updated_at = $9
		WHERE id = $1`,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		nullable(task.OrganizationID), nullable(task.AssigneeID),
		nullable(task.ReporterID), task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task by id
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the tasks matching the query, newest first
func (s *PostgresStore) List(ctx context.Context, q Query) ([]Task, error) {
	if q.ScopeNone {
		return []Task{}, nil
	}

	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case q.ScopeOrgIDs != nil:
		conds = append(conds, "organization_id = ANY("+arg(pq.Array(q.ScopeOrgIDs))+")")
	case q.ScopeOrgID != "":
		conds = append(conds, "organization_id = "+arg(q.ScopeOrgID))
	case q.ScopeAssigneeID != "":
		conds = append(conds, "assignee_id = "+arg(q.ScopeAssigneeID))
	}

	if q.Status != "" {
		conds = append(conds, "status = "+arg(q.Status))
	}
	if q.CreatorID != "" {
		conds = append(conds, "creator_id = "+arg(q.CreatorID))
	}
	if q.AssigneeID != "" {
		conds = append(conds, "assignee_id = "+arg(q.AssigneeID))
	}
	if q.Search != "" {
		pattern := arg("%" + q.Search + "%")
		conds = append(conds, "(title ILIKE "+pattern+" OR description ILIKE "+pattern+")")
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasksList := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasksList = append(tasksList, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasksList, nil
}
