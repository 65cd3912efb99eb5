package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry(time.Minute)
	defer registry.Close()

	source := uuid.New()
	target := uuid.New()
	registry.Register("op-1", ModeCopy, source, target, 400)

	snapshot, err := registry.Snapshot("op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Percent != 0 {
		t.Errorf("expected 0 percent at registration, got %f", snapshot.Percent)
	}
	if snapshot.Status != StatusInProgress {
		t.Errorf("expected in_progress at registration, got %s", snapshot.Status)
	}

	registry.Update("op-1", 200)
	snapshot, _ = registry.Snapshot("op-1")
	if snapshot.Percent != 50 {
		t.Errorf("expected 50 percent, got %f", snapshot.Percent)
	}
	if snapshot.Status != StatusInProgress {
		t.Errorf("expected in_progress at 50 percent, got %s", snapshot.Status)
	}

	registry.Complete("op-1")
	snapshot, _ = registry.Snapshot("op-1")
	if snapshot.Percent != 100 {
		t.Errorf("expected exactly 100 percent, got %f", snapshot.Percent)
	}
	if snapshot.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", snapshot.Status)
	}
}

func TestRegistryFailure(t *testing.T) {
	registry := NewRegistry(time.Minute)
	defer registry.Close()

	registry.Register("op-2", ModeMove, uuid.New(), uuid.New(), 10)
	registry.Update("op-2", 4)
	registry.Fail("op-2")

	snapshot, err := registry.Snapshot("op-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Percent != FailureSentinel {
		t.Errorf("expected sentinel percent, got %f", snapshot.Percent)
	}
	if snapshot.Status != StatusError {
		t.Errorf("expected error status, got %s", snapshot.Status)
	}

	// Terminal operations ignore further updates
	registry.Update("op-2", 8)
	snapshot, _ = registry.Snapshot("op-2")
	if snapshot.Percent != FailureSentinel {
		t.Errorf("expected sentinel to stick, got %f", snapshot.Percent)
	}
}

func TestRegistryMonotonicProgress(t *testing.T) {
	registry := NewRegistry(time.Minute)
	defer registry.Close()

	registry.Register("op-3", ModeCopy, uuid.New(), uuid.New(), 100)
	registry.Update("op-3", 60)
	registry.Update("op-3", 40)

	snapshot, _ := registry.Snapshot("op-3")
	if snapshot.Processed != 60 {
		t.Errorf("expected processed to stay at 60, got %d", snapshot.Processed)
	}
}

func TestRegistryZeroTotal(t *testing.T) {
	registry := NewRegistry(time.Minute)
	defer registry.Close()

	registry.Register("op-4", ModeCopy, uuid.New(), uuid.New(), 0)
	registry.Complete("op-4")

	snapshot, _ := registry.Snapshot("op-4")
	if snapshot.Percent != 100 {
		t.Errorf("expected empty operation to complete at 100, got %f", snapshot.Percent)
	}
	if snapshot.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", snapshot.Status)
	}
}

func TestRegistryUnknownOperation(t *testing.T) {
	registry := NewRegistry(time.Minute)
	defer registry.Close()

	if _, err := registry.Snapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Updates and terminal transitions on unknown ids are no-ops
	registry.Update("missing", 5)
	registry.Complete("missing")
	registry.Fail("missing")
	registry.Evict("missing")
	if registry.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", registry.Len())
	}
}

func TestRegistryRetentionEviction(t *testing.T) {
	registry := NewRegistry(10 * time.Millisecond)
	defer registry.Close()

	registry.Register("op-5", ModeCopy, uuid.New(), uuid.New(), 1)
	registry.Complete("op-5")

	registry.evictExpired(time.Now().Add(20 * time.Millisecond))

	if _, err := registry.Snapshot("op-5"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after retention eviction, got %v", err)
	}
}

func TestRegistryRetentionKeepsRunning(t *testing.T) {
	registry := NewRegistry(10 * time.Millisecond)
	defer registry.Close()

	registry.Register("op-6", ModeCopy, uuid.New(), uuid.New(), 100)
	registry.Update("op-6", 10)

	// Non-terminal operations are never evicted regardless of age
	registry.evictExpired(time.Now().Add(time.Hour))

	if _, err := registry.Snapshot("op-6"); err != nil {
		t.Errorf("expected running operation to survive sweeps, got %v", err)
	}
}
