package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/orgs"
	"github.com/taskhive/taskhive/pkg/users"
)

const auditEntityType = "Task"

// ServiceConfig tunes the scoping rules that have more than one defensible
// answer.
type ServiceConfig struct {
	// PrimaryRolePolicy picks the effective role for multi-role principals
	PrimaryRolePolicy authz.PrimaryRolePolicy
	// RestrictAdminAssignment, when true, limits ADMIN task creation to
	// assignees inside the admin's own organization. Off by default: ADMIN
	// write reach is organization-agnostic while read reach is exact-org,
	// and some deployments want the two aligned.
	RestrictAdminAssignment bool
}

// Service enforces role-scoped task access. Every read and write is
// evaluated against the caller's effective role and organization before it
// touches the store.
type Service struct {
	store    Store
	users    users.Store
	resolver *orgs.Resolver
	auditor  audit.Recorder
	cfg      ServiceConfig
	logger   *observability.Logger
}

// NewService wires the task service
func NewService(store Store, userStore users.Store, resolver *orgs.Resolver, auditor audit.Recorder, cfg ServiceConfig, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{
		store:    store,
		users:    userStore,
		resolver: resolver,
		auditor:  auditor,
		cfg:      cfg,
		logger:   logger,
	}
}

// Create makes a new task assigned to an existing user. Only ADMIN and
// OWNER principals may create tasks; OWNER may assign anywhere in their
// organization subtree, ADMIN anywhere unless RestrictAdminAssignment is
// set. The task's organization is copied from the assignee, never taken
// from the caller.
func (s *Service) Create(ctx context.Context, input CreateTaskInput, p *authz.Principal) (*Task, error) {
	role := p.PrimaryRole(s.cfg.PrimaryRolePolicy)
	if role != authz.RoleAdmin && role != authz.RoleOwner {
		return nil, fmt.Errorf("%w: only admins and owners can create tasks", ErrForbidden)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrBadRequest)
	}
	if input.AssigneeID == "" {
		return nil, fmt.Errorf("%w: tasks must have an assignee", ErrForbidden)
	}

	assignee, err := s.users.GetByID(ctx, input.AssigneeID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, fmt.Errorf("%w: assignee %s", ErrNotFound, input.AssigneeID)
		}
		return nil, fmt.Errorf("failed to load assignee: %w", err)
	}

	switch role {
	case authz.RoleOwner:
		closure, err := s.resolver.DescendantClosure(ctx, p.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization scope: %w", err)
		}
		if !closure.Contains(assignee.OrganizationID) {
			return nil, fmt.Errorf("%w: assignee is outside your organization hierarchy", ErrForbidden)
		}
	case authz.RoleAdmin:
		if s.cfg.RestrictAdminAssignment && assignee.OrganizationID != p.OrganizationID {
			return nil, fmt.Errorf("%w: assignee is outside your organization", ErrForbidden)
		}
	}

	if input.ReporterID != "" {
		if _, err := s.users.GetByID(ctx, input.ReporterID); err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return nil, fmt.Errorf("%w: reporter %s", ErrNotFound, input.ReporterID)
			}
			return nil, fmt.Errorf("failed to load reporter: %w", err)
		}
	}

	status := input.Status
	if status == "" {
		status = StatusTodo
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	now := time.Now().UTC()
	task := &Task{
		ID:             uuid.NewString(),
		Title:          input.Title,
		Description:    input.Description,
		Status:         status,
		Priority:       priority,
		OrganizationID: assignee.OrganizationID,
		AssigneeID:     assignee.ID,
		CreatorID:      p.ID,
		ReporterID:     input.ReporterID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.recordAudit(ctx, audit.ActionCreate, task.ID, nil, task.Snapshot(), p.ID)

	s.logger.WithFields(map[string]interface{}{
		"task_id":    task.ID,
		"creator_id": p.ID,
		"org_id":     task.OrganizationID,
	}).Info("task created")
	return task, nil
}

// List returns the tasks visible to the principal. OWNER sees the whole
// organization subtree, ADMIN exactly their own organization, USER only
// tasks assigned to them, and anything else sees nothing. The filter is
// applied on top of that scope, it can only narrow it.
func (s *Service) List(ctx context.Context, filter Filter, p *authz.Principal) ([]Task, error) {
	q := Query{
		Status:     filter.Status,
		Search:     filter.Search,
		CreatorID:  filter.CreatorID,
		AssigneeID: filter.AssigneeID,
	}

	switch p.PrimaryRole(s.cfg.PrimaryRolePolicy) {
	case authz.RoleOwner:
		if p.OrganizationID == "" {
			q.ScopeNone = true
			break
		}
		closure, err := s.resolver.DescendantClosure(ctx, p.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve organization scope: %w", err)
		}
		q.ScopeOrgIDs = closure.IDs()
	case authz.RoleAdmin:
		if p.OrganizationID == "" {
			q.ScopeNone = true
			break
		}
		q.ScopeOrgID = p.OrganizationID
	case authz.RoleUser:
		q.ScopeAssigneeID = p.ID
	default:
		return []Task{}, nil
	}

	tasksList, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasksList, nil
}

// Get returns one task if the principal's scope reaches it. Existence is
// checked before scope, so callers can distinguish "no such task" from
// "not yours". OWNER reach is unrestricted on single-task reads (listing
// still scopes OWNER to the subtree); everyone else needs exact
// organization equality.
func (s *Service) Get(ctx context.Context, id string, p *authz.Principal) (*Task, error) {
	task, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	if p.PrimaryRole(s.cfg.PrimaryRolePolicy) != authz.RoleOwner {
		if p.OrganizationID == "" || task.OrganizationID != p.OrganizationID {
			return nil, fmt.Errorf("%w: task %s", ErrAccessDenied, id)
		}
	}
	return task, nil
}

// Update applies a patch to a task the principal can already Get. The
// pre-change state is snapshotted before any field is touched and the
// update is recorded in the audit trail with both snapshots. Reassignment
// is restricted to users of the principal's own organization for every
// role, including OWNER.
func (s *Service) Update(ctx context.Context, id string, patch UpdateTaskPatch, p *authz.Principal) (*Task, error) {
	task, err := s.Get(ctx, id, p)
	if err != nil {
		return nil, err
	}

	before := task.Snapshot()

	if patch.AssigneeID.Set {
		if patch.AssigneeID.Value == nil {
			task.AssigneeID = ""
		} else if newID := *patch.AssigneeID.Value; newID != task.AssigneeID {
			assignee, err := s.users.GetByID(ctx, newID)
			if err != nil || assignee.OrganizationID != p.OrganizationID {
				if err != nil && !errors.Is(err, users.ErrNotFound) {
					return nil, fmt.Errorf("failed to load assignee: %w", err)
				}
				return nil, fmt.Errorf("%w: new assignee not found or outside your organization", ErrBadRequest)
			}
			task.AssigneeID = assignee.ID
			task.OrganizationID = assignee.OrganizationID
		}
	}

	if patch.ReporterID.Set {
		if patch.ReporterID.Value == nil {
			task.ReporterID = ""
		} else if newID := *patch.ReporterID.Value; newID != task.ReporterID {
			if _, err := s.users.GetByID(ctx, newID); err != nil {
				if errors.Is(err, users.ErrNotFound) {
					return nil, fmt.Errorf("%w: new reporter not found", ErrBadRequest)
				}
				return nil, fmt.Errorf("failed to load reporter: %w", err)
			}
			task.ReporterID = newID
		}
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrBadRequest)
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		if !validStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, *patch.Status)
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !validPriority(*patch.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrBadRequest, *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, task); err != nil {
		s.logger.WithError(err).WithField("task_id", id).Error("task update failed")
		return nil, fmt.Errorf("%w: failed to update task", ErrInternal)
	}

	if err := s.auditUpdate(ctx, audit.ActionUpdate, task.ID, before, task.Snapshot(), p.ID); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task the principal can Get and records the deletion
// with the final snapshot as the old value.
func (s *Service) Delete(ctx context.Context, id string, p *authz.Principal) error {
	task, err := s.Get(ctx, id, p)
	if err != nil {
		return err
	}

	before := task.Snapshot()

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.WithError(err).WithField("task_id", id).Error("task delete failed")
		return fmt.Errorf("%w: failed to delete task", ErrInternal)
	}

	return s.auditUpdate(ctx, audit.ActionDelete, id, before, nil, p.ID)
}

// auditUpdate records a mutation and fails the operation if the record
// cannot be written. Update and delete are not done until the trail says
// they are.
func (s *Service) auditUpdate(ctx context.Context, action audit.Action, taskID string, oldValue, newValue interface{}, userID string) error {
	oldSnap, err := audit.Snapshot(oldValue)
	if err != nil {
		return fmt.Errorf("%w: failed to snapshot task", ErrInternal)
	}
	newSnap, err := audit.Snapshot(newValue)
	if err != nil {
		return fmt.Errorf("%w: failed to snapshot task", ErrInternal)
	}
	entry := &audit.Entry{
		Action:     action,
		EntityType: auditEntityType,
		EntityID:   taskID,
		OldValue:   oldSnap,
		NewValue:   newSnap,
		UserID:     userID,
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("task_id", taskID).Error("audit write failed")
		return fmt.Errorf("%w: failed to record audit entry", ErrInternal)
	}
	return nil
}

// recordAudit is the best-effort variant used on create, where the task is
// already persisted and a lost trail entry should not fail the request.
func (s *Service) recordAudit(ctx context.Context, action audit.Action, taskID string, oldValue, newValue interface{}, userID string) {
	if err := s.auditUpdate(ctx, action, taskID, oldValue, newValue, userID); err != nil {
		s.logger.WithError(err).WithField("task_id", taskID).Warn("audit entry dropped")
	}
}

func validStatus(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

func validPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
