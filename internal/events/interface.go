package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published over the operation lifecycle
const (
	TypeOperationLaunched  = "operation_launched"
	TypeOperationCompleted = "operation_completed"
	TypeOperationFailed    = "operation_failed"
)

// Event describes a migration operation lifecycle transition
type Event struct {
	OperationID string    `json:"operation_id"`
	Type        string    `json:"type"`
	Mode        string    `json:"mode"`
	SourceID    uuid.UUID `json:"source_id"`
	TargetID    uuid.UUID `json:"target_id"`
	Total       int       `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher publishes operation lifecycle events. Publishing is
// best-effort: the engine logs failures and keeps running.
type Publisher interface {
	// Publish publishes a lifecycle event
	Publish(ctx context.Context, event *Event) error

	// Close closes the publisher connection
	Close() error
}
