package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// TaskStatus is the task lifecycle state
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusInReview   TaskStatus = "IN_REVIEW"
	StatusDone       TaskStatus = "DONE"
)

// TaskPriority orders tasks by urgency
type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

// Error taxonomy for task operations. The split between ErrNotFound and
// ErrAccessDenied is deliberate: "doesn't exist" and "not yours" are
// different answers, and not-found is checked first.
var (
	ErrNotFound     = errors.New("task not found")
	ErrAccessDenied = errors.New("access to task denied")
	ErrForbidden    = errors.New("operation forbidden")
	ErrBadRequest   = errors.New("invalid task input")
	ErrInternal     = errors.New("internal error")
)

// Task is a unit of work owned by exactly one organization. The
// organization is always derived from the assignee's organization, never
// supplied by the caller.
type Task struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	OrganizationID string       `json:"organization_id"`
	AssigneeID     string       `json:"assignee_id,omitempty"`
	CreatorID      string       `json:"creator_id,omitempty"`
	ReporterID     string       `json:"reporter_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TaskSnapshot is the audit view of a task, built field by field from the
// live entity so the audit trail never shares memory with it.
type TaskSnapshot struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	OrganizationID string       `json:"organization_id"`
	AssigneeID     string       `json:"assignee_id,omitempty"`
	CreatorID      string       `json:"creator_id,omitempty"`
	ReporterID     string       `json:"reporter_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Snapshot captures the task's current state by value
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		OrganizationID: t.OrganizationID,
		AssigneeID:     t.AssigneeID,
		CreatorID:      t.CreatorID,
		ReporterID:     t.ReporterID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// CreateTaskInput is the caller-supplied data for a new task. The task's
// organization is not part of it.
type CreateTaskInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	AssigneeID  string       `json:"assigneeId"`
	ReporterID  string       `json:"reporterId,omitempty"`
}

// OptionalString distinguishes an absent JSON field (Set=false) from an
// explicit null (Set=true, Value=nil). Updates need the difference:
// omitting assigneeId leaves it alone, sending null unassigns.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements tri-state decoding
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// UpdateTaskPatch carries the fields to change. Nil pointers and unset
// optionals are left untouched.
type UpdateTaskPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *TaskStatus    `json:"status,omitempty"`
	Priority    *TaskPriority  `json:"priority,omitempty"`
	AssigneeID  OptionalString `json:"assigneeId,omitempty"`
	ReporterID  OptionalString `json:"reporterId,omitempty"`
}

// Filter narrows a task listing after the role scope is applied
type Filter struct {
	Status     TaskStatus `json:"status,omitempty"`
	Search     string     `json:"search,omitempty"`
	CreatorID  string     `json:"creatorId,omitempty"`
	AssigneeID string     `json:"assigneeId,omitempty"`
}

// Query is the store-level listing predicate: the role scope computed by
// the service plus the caller's orthogonal filters.
type Query struct {
	// Role scope: exactly one of ScopeOrgIDs, ScopeOrgID, ScopeAssigneeID
	// or ScopeNone is in effect
	ScopeOrgIDs     []string
	ScopeOrgID      string
	ScopeAssigneeID string
	ScopeNone       bool

	Status     TaskStatus
	Search     string
	CreatorID  string
	AssigneeID string
}

// Store persists tasks
type Store interface {
	// Get returns one task; ErrNotFound if absent
	Get(ctx context.Context, id string) (*Task, error)
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	// Delete removes a task; ErrNotFound if absent
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]Task, error)
}
