package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Action categorizes an audited operation
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionLogin      Action = "login"
	ActionLogout     Action = "logout"
	ActionAssignRole Action = "assign_role"
	ActionRemoveRole Action = "remove_role"
)

// Entry is one audit log record. OldValue/NewValue hold snapshots encoded
// at capture time: once recorded, later mutation of the live entity cannot
// change the stored history.
type Entry struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id,omitempty"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Snapshot encodes a snapshot value for an Entry. Encoding copies the
// value, which is what decouples the audit record from the live entity.
func Snapshot(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode audit snapshot: %w", err)
	}
	return data, nil
}

// Recorder persists audit entries
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// Filter narrows an audit log query
type Filter struct {
	EntityType string
	EntityID   string
	UserID     string
	Limit      int
}

// Store reads back persisted audit entries
type Store interface {
	Recorder
	// List returns entries most recent first
	List(ctx context.Context, filter Filter) ([]*Entry, error)
	// Cleanup removes entries older than the cutoff and reports how many
	// were deleted
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}
