// Package memorydb provides in-memory backends for the snapshot stores and
// the restore index. State documents are cloned through JSON on every read
// and mutate, so callers can hold returned records indefinitely.
package memorydb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rezilient/restore-request-service/internal/models"
)

// SnapshotStore is a mutex-protected versioned state document. Mutate clones
// the current state, invokes the mutator, and installs the result with
// version+1; a mutator error leaves the committed state untouched.
type SnapshotStore[T any] struct {
	mu        sync.Mutex
	version   int64
	state     *T
	newState  func() *T
	normalize func(*T)
}

// NewJobStateStore returns an empty in-memory job state store.
func NewJobStateStore() *SnapshotStore[models.JobState] {
	return &SnapshotStore[models.JobState]{
		state:     models.NewJobState(),
		newState:  models.NewJobState,
		normalize: func(s *models.JobState) { s.Normalize() },
	}
}

// NewPlanStateStore returns an empty in-memory plan state store.
func NewPlanStateStore() *SnapshotStore[models.PlanState] {
	return &SnapshotStore[models.PlanState]{
		state:     models.NewPlanState(),
		newState:  models.NewPlanState,
		normalize: func(s *models.PlanState) { s.Normalize() },
	}
}

// Read returns a deep clone of the committed state.
func (s *SnapshotStore[T]) Read(ctx context.Context) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.state)
}

// Mutate runs fn on a working copy and atomically installs the new version.
// The returned state is a second clone, detached from the committed one.
func (s *SnapshotStore[T]) Mutate(ctx context.Context, fn func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work, err := s.clone(s.state)
	if err != nil {
		return nil, err
	}

	if err := fn(work); err != nil {
		return nil, err
	}

	s.state = work
	s.version++

	return s.clone(work)
}

// Version returns the committed version counter.
func (s *SnapshotStore[T]) Version(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

// Close is a no-op for the in-memory backend.
func (s *SnapshotStore[T]) Close() error { return nil }

func (s *SnapshotStore[T]) clone(state *T) (*T, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to clone state: %w", err)
	}
	out := s.newState()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to clone state: %w", err)
	}
	s.normalize(out)
	return out, nil
}
