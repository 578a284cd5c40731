package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rezilient/restore-request-service/internal/models"
)

// Single-row snapshot tables. The CHECK pins snapshot_id to 1 so each logical
// store is exactly one row.
const (
	jobSnapshotTable  = "rrs_job_state_snapshots"
	planSnapshotTable = "rrs_plan_state_snapshots"
)

// SnapshotStore persists one logical state document as a single versioned
// row. Mutate runs under an IMMEDIATE transaction: read, unmarshal, mutate,
// write back version+1, commit; any error rolls back, preserving the last
// committed snapshot.
type SnapshotStore[T any] struct {
	db        *sql.DB
	table     string
	newState  func() *T
	normalize func(*T)
}

// NewJobStateStore opens the job snapshot store, creating the table and the
// empty version-0 row if absent.
func NewJobStateStore(db *sql.DB) (*SnapshotStore[models.JobState], error) {
	s := &SnapshotStore[models.JobState]{
		db:        db,
		table:     jobSnapshotTable,
		newState:  models.NewJobState,
		normalize: func(st *models.JobState) { st.Normalize() },
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPlanStateStore opens the plan snapshot store, creating the table and the
// empty version-0 row if absent.
func NewPlanStateStore(db *sql.DB) (*SnapshotStore[models.PlanState], error) {
	s := &SnapshotStore[models.PlanState]{
		db:        db,
		table:     planSnapshotTable,
		newState:  models.NewPlanState,
		normalize: func(st *models.PlanState) { st.Normalize() },
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SnapshotStore[T]) init() error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    snapshot_id INTEGER PRIMARY KEY CHECK (snapshot_id = 1),
    version     INTEGER NOT NULL,
    state_json  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
)`, s.table)
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.table, err)
	}

	empty, err := json.Marshal(s.newState())
	if err != nil {
		return fmt.Errorf("failed to marshal empty state: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (snapshot_id, version, state_json, updated_at) VALUES (1, 0, ?, ?)",
		s.table)
	if _, err := s.db.Exec(insert, string(empty), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to seed %s: %w", s.table, err)
	}

	return nil
}

// Read returns the committed state. The unmarshal produces a fresh document,
// so callers can hold it across later mutates.
func (s *SnapshotStore[T]) Read(ctx context.Context) (*T, error) {
	var stateJSON string
	query := fmt.Sprintf("SELECT state_json FROM %s WHERE snapshot_id = 1", s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&stateJSON); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	state := s.newState()
	if err := json.Unmarshal([]byte(stateJSON), state); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	s.normalize(state)
	return state, nil
}

// Version returns the committed version counter.
func (s *SnapshotStore[T]) Version(ctx context.Context) (int64, error) {
	var version int64
	query := fmt.Sprintf("SELECT version FROM %s WHERE snapshot_id = 1", s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read snapshot version: %w", err)
	}
	return version, nil
}

// Mutate executes fn on the parsed state under an IMMEDIATE transaction and
// installs the result atomically with version+1.
func (s *SnapshotStore[T]) Mutate(ctx context.Context, fn func(*T) error) (*T, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediate(ctx, conn); err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback runs even if ctx is canceled.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var stateJSON string
	var version int64
	query := fmt.Sprintf("SELECT version, state_json FROM %s WHERE snapshot_id = 1", s.table)
	if err := conn.QueryRowContext(ctx, query).Scan(&version, &stateJSON); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	state := s.newState()
	if err := json.Unmarshal([]byte(stateJSON), state); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	s.normalize(state)

	if err := fn(state); err != nil {
		return nil, err
	}

	newJSON, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	update := fmt.Sprintf(
		"UPDATE %s SET version = ?, state_json = ?, updated_at = ? WHERE snapshot_id = 1",
		s.table)
	if _, err := conn.ExecContext(ctx, update, version+1, string(newJSON), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	committed = true

	return state, nil
}

// Close is a no-op; the shared pool is owned by the storage manager.
func (s *SnapshotStore[T]) Close() error { return nil }
