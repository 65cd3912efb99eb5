// Package progress tracks the state of running and recently finished
// migration operations. The registry is process-lifetime only: terminal
// entries are evicted after a retention window and later lookups return
// ErrNotFound.
package progress

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolsascode/ccm/internal/logger"
)

// ErrNotFound is returned when an operation is unknown or already evicted
var ErrNotFound = errors.New("operation not found")

// FailureSentinel marks a failed operation's percent value
const FailureSentinel = -1.0

// Status labels derived from an operation's percent value
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Mode identifies what kind of migration an operation runs
const (
	ModeCopy = "copy"
	ModeMove = "move"
)

// Operation is the registry's record of one migration
type Operation struct {
	ID        string
	Mode      string
	SourceID  uuid.UUID
	TargetID  uuid.UUID
	Total     int
	Processed int
	Percent   float64
	// finishedAt is set when the operation reaches a terminal percent and
	// drives retention eviction
	finishedAt time.Time
}

// Status derives the status label from the percent value
func (o *Operation) Status() string {
	switch {
	case o.Percent == 100:
		return StatusCompleted
	case o.Percent == FailureSentinel:
		return StatusError
	default:
		return StatusInProgress
	}
}

// Snapshot is a point-in-time view of an operation handed to callers
type Snapshot struct {
	ID        string
	Mode      string
	SourceID  uuid.UUID
	TargetID  uuid.UUID
	Total     int
	Processed int
	Percent   float64
	Status    string
}

// Registry is a concurrency-safe map of operations with retention-based
// eviction of terminal entries
type Registry struct {
	mu         sync.RWMutex
	operations map[string]*Operation
	retention  time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// NewRegistry creates a registry and starts its eviction sweeper
func NewRegistry(retention time.Duration) *Registry {
	r := &Registry{
		operations: make(map[string]*Operation),
		retention:  retention,
		done:       make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Register adds a new operation at zero progress
func (r *Registry) Register(id, mode string, sourceID, targetID uuid.UUID, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.operations[id] = &Operation{
		ID:       id,
		Mode:     mode,
		SourceID: sourceID,
		TargetID: targetID,
		Total:    total,
	}
}

// Update advances an operation's processed count and recomputes percent.
// Updates to unknown or terminal operations are ignored.
func (r *Registry) Update(id string, processed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	operation, ok := r.operations[id]
	if !ok || !operation.finishedAt.IsZero() {
		return
	}
	if processed < operation.Processed {
		// Progress never moves backwards
		return
	}
	operation.Processed = processed
	if operation.Total > 0 {
		operation.Percent = float64(operation.Processed) / float64(operation.Total) * 100
	}
}

// Complete marks an operation as finished at exactly 100 percent
func (r *Registry) Complete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	operation, ok := r.operations[id]
	if !ok {
		return
	}
	operation.Percent = 100
	operation.Processed = operation.Total
	operation.finishedAt = time.Now()
}

// Fail marks an operation as failed with the sentinel percent
func (r *Registry) Fail(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	operation, ok := r.operations[id]
	if !ok {
		return
	}
	operation.Percent = FailureSentinel
	operation.finishedAt = time.Now()
}

// Snapshot returns a point-in-time view of an operation
func (r *Registry) Snapshot(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	operation, ok := r.operations[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{
		ID:        operation.ID,
		Mode:      operation.Mode,
		SourceID:  operation.SourceID,
		TargetID:  operation.TargetID,
		Total:     operation.Total,
		Processed: operation.Processed,
		Percent:   operation.Percent,
		Status:    operation.Status(),
	}, nil
}

// Evict removes an operation. Evicting an unknown id is a no-op.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.operations, id)
}

// Len returns the number of tracked operations
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.operations)
}

// Close stops the eviction sweeper
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

// sweep evicts terminal operations older than the retention window
func (r *Registry) sweep() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.evictExpired(now)
		}
	}
}

func (r *Registry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, operation := range r.operations {
		if operation.finishedAt.IsZero() {
			continue
		}
		if now.Sub(operation.finishedAt) >= r.retention {
			delete(r.operations, id)
			logger.Debugf("Evicted operation %s after retention window", id)
		}
	}
}
