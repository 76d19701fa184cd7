package orgs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/users"
)

// Service provides organization management on top of the store, keeping
// the hierarchy resolver's closure cache coherent across writes.
type Service struct {
	store    Store
	users    users.Store
	resolver *Resolver
	logger   *observability.Logger
}

// NewService creates an organization service
func NewService(store Store, userStore users.Store, resolver *Resolver, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{store: store, users: userStore, resolver: resolver, logger: logger}
}

// Resolver exposes the hierarchy resolver for scope computations
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// List returns all organizations
func (s *Service) List(ctx context.Context) ([]Organization, error) {
	return s.store.List(ctx)
}

// Get returns one organization
func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	return s.store.Get(ctx, id)
}

// Create inserts a new organization. If a parent is given, the level is
// derived from the parent's level; the parent must exist.
func (s *Service) Create(ctx context.Context, name, description, parentID string) (*Organization, error) {
	org := &Organization{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		ParentID:    parentID,
		Level:       1,
	}
	if parentID != "" {
		parent, err := s.store.Get(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("parent organization: %w", err)
		}
		org.Level = parent.Level + 1
	}
	if err := s.store.Create(ctx, org); err != nil {
		return nil, err
	}
	s.resolver.Invalidate()
	s.logger.WithFields(map[string]interface{}{
		"org_id": org.ID,
		"name":   org.Name,
	}).Info("organization created")
	return org, nil
}

// SetParent re-parents an organization and drops stale cached closures
func (s *Service) SetParent(ctx context.Context, id, parentID string) error {
	if err := s.store.SetParent(ctx, id, parentID); err != nil {
		return err
	}
	s.resolver.Invalidate()
	return nil
}

// AddUser places an existing user into an organization. Both sides must
// exist.
func (s *Service) AddUser(ctx context.Context, orgID, userID string) (*users.User, error) {
	if _, err := s.store.Get(ctx, orgID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.SetOrganization(ctx, userID, orgID); err != nil {
		return nil, err
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"org_id":  orgID,
	}).Info("user added to organization")
	return s.users.GetByID(ctx, userID)
}
