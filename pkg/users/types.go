package users

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/taskhive/pkg/authz"
)

// ErrNotFound indicates the referenced user does not exist
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken indicates the email is already registered
var ErrEmailTaken = errors.New("email already registered")

// User is a persisted account. PasswordHash is never serialized.
type User struct {
	ID             string           `json:"id"`
	Email          string           `json:"email"`
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	PasswordHash   string           `json:"-"`
	OrganizationID string           `json:"organization_id,omitempty"` // empty means no organization
	Roles          []authz.RoleName `json:"roles"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Store persists user accounts
type Store interface {
	// GetByID loads a user with roles; returns ErrNotFound if absent
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail loads a user including the password hash, for credential
	// checks; returns ErrNotFound if absent
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Create inserts a new user with its role assignments; returns
	// ErrEmailTaken on a duplicate email
	Create(ctx context.Context, user *User) error
	// SetOrganization moves a user into an organization
	SetOrganization(ctx context.Context, userID, orgID string) error
	// SetRoles replaces a user's role assignments
	SetRoles(ctx context.Context, userID string, roles []authz.RoleName) error
	// List returns all users
	List(ctx context.Context) ([]User, error)
}
