package orgs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the referenced organization does not exist
var ErrNotFound = errors.New("organization not found")

// Organization is a node in the rooted organization forest. ParentID is
// empty for roots. Level is an informational depth counter and is not
// authoritative for traversal.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists organizations
type Store interface {
	// List returns every organization; the hierarchy resolver traverses
	// the full parent-link graph in memory
	List(ctx context.Context) ([]Organization, error)
	// Get returns one organization; ErrNotFound if absent
	Get(ctx context.Context, id string) (*Organization, error)
	Create(ctx context.Context, org *Organization) error
	// SetParent re-parents an organization
	SetParent(ctx context.Context, id, parentID string) error
}
