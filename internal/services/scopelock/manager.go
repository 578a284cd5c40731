// Package scopelock enforces at-most-one running job per table across all
// source scopes, with FIFO fair queueing. The manager is a plain in-memory
// structure: callers rehydrate it from the persisted lock state at the start
// of a snapshot mutate and export it at the end, so the snapshot transaction
// provides all serialization.
package scopelock

import (
	"sort"
	"strings"

	"github.com/rezilient/restore-request-service/internal/models"
)

// Lock decision states returned by Acquire.
const (
	StateRunning = "running"
	StateQueued  = "queued"
)

// Manager holds the two ordered sequences of the table-scope lock. It is not
// safe for concurrent use; serialization belongs to the snapshot store.
type Manager struct {
	running []models.RunningLockEntry
	queued  []models.QueuedLockEntry
}

// New returns an empty lock manager.
func New() *Manager {
	return &Manager{}
}

// Load rehydrates a manager from persisted lock state, preserving order.
// Loading never triggers promotion: the restored queue is observed verbatim
// by the next Release.
func Load(state models.LockState) *Manager {
	m := &Manager{
		running: make([]models.RunningLockEntry, len(state.RunningJobs)),
		queued:  make([]models.QueuedLockEntry, len(state.QueuedJobs)),
	}
	for i, e := range state.RunningJobs {
		m.running[i] = models.RunningLockEntry{JobID: e.JobID, Tables: copyTables(e.Tables)}
	}
	for i, e := range state.QueuedJobs {
		q := e
		q.Tables = copyTables(e.Tables)
		q.BlockedTables = copyTables(e.BlockedTables)
		m.queued[i] = q
	}
	return m
}

// Export serializes the manager's state, preserving order.
func (m *Manager) Export() models.LockState {
	state := models.LockState{
		RunningJobs: make([]models.RunningLockEntry, len(m.running)),
		QueuedJobs:  make([]models.QueuedLockEntry, len(m.queued)),
	}
	for i, e := range m.running {
		state.RunningJobs[i] = models.RunningLockEntry{JobID: e.JobID, Tables: copyTables(e.Tables)}
	}
	for i, e := range m.queued {
		q := e
		q.Tables = copyTables(e.Tables)
		q.BlockedTables = copyTables(e.BlockedTables)
		state.QueuedJobs[i] = q
	}
	return state
}

// Acquire admits a job for the given tables. A job whose tables overlap any
// running entry — or any queued entry, which keeps later arrivals from
// starving the queue head — is appended to the FIFO queue instead of running.
func (m *Manager) Acquire(jobID, tenantID, instanceID string, tables []string) models.LockDecision {
	tables = NormalizeTables(tables)

	blocked := make(map[string]struct{})
	for _, t := range tables {
		if m.runningHolds(t) || m.queuedHolds(t) {
			blocked[t] = struct{}{}
		}
	}

	if len(blocked) == 0 {
		m.running = append(m.running, models.RunningLockEntry{JobID: jobID, Tables: tables})
		return models.LockDecision{State: StateRunning, ReasonCode: models.ReasonNone}
	}

	blockedTables := make([]string, 0, len(blocked))
	for t := range blocked {
		blockedTables = append(blockedTables, t)
	}
	sort.Strings(blockedTables)

	m.queued = append(m.queued, models.QueuedLockEntry{
		JobID:         jobID,
		Tables:        tables,
		TenantID:      tenantID,
		InstanceID:    instanceID,
		ReasonCode:    models.ReasonQueuedScopeLock,
		BlockedTables: blockedTables,
	})

	pos := len(m.queued)
	return models.LockDecision{
		State:         StateQueued,
		ReasonCode:    models.ReasonQueuedScopeLock,
		QueuePosition: &pos,
		BlockedTables: blockedTables,
	}
}

// Release removes the job from the running or queued sequence and promotes
// the FIFO-ordered set of queued jobs that become runnable: walking from the
// head, an entry is promoted when its tables overlap no running entry and no
// earlier entry that remains queued.
func (m *Manager) Release(jobID string) models.ReleaseResult {
	result := models.ReleaseResult{Released: []string{}, Promoted: []models.PromotedJob{}}

	removed := false
	for i, e := range m.running {
		if e.JobID == jobID {
			result.Released = copyTables(e.Tables)
			m.running = append(m.running[:i], m.running[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i, e := range m.queued {
			if e.JobID == jobID {
				result.Released = copyTables(e.Tables)
				m.queued = append(m.queued[:i], m.queued[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return result
	}

	var remaining []models.QueuedLockEntry
	for _, e := range m.queued {
		if m.overlapsRunning(e.Tables) || overlapsQueued(remaining, e.Tables) {
			remaining = append(remaining, e)
			continue
		}
		m.running = append(m.running, models.RunningLockEntry{JobID: e.JobID, Tables: e.Tables})
		result.Promoted = append(result.Promoted, models.PromotedJob{JobID: e.JobID, ReasonCode: models.ReasonNone})
	}
	m.queued = remaining

	return result
}

// Dequeue removes a queued entry without promotion. Returns false when the
// job is not queued.
func (m *Manager) Dequeue(jobID string) bool {
	for i, e := range m.queued {
		if e.JobID == jobID {
			m.queued = append(m.queued[:i], m.queued[i+1:]...)
			return true
		}
	}
	return false
}

// QueuePosition returns the 1-based position of a queued job, or 0 if the job
// is not queued.
func (m *Manager) QueuePosition(jobID string) int {
	for i, e := range m.queued {
		if e.JobID == jobID {
			return i + 1
		}
	}
	return 0
}

// Snapshot returns a deep-copied view of both sequences.
func (m *Manager) Snapshot() models.LockSnapshot {
	state := m.Export()
	return models.LockSnapshot{Running: state.RunningJobs, Queued: state.QueuedJobs}
}

func (m *Manager) runningHolds(table string) bool {
	for _, e := range m.running {
		for _, t := range e.Tables {
			if t == table {
				return true
			}
		}
	}
	return false
}

func (m *Manager) queuedHolds(table string) bool {
	for _, e := range m.queued {
		for _, t := range e.Tables {
			if t == table {
				return true
			}
		}
	}
	return false
}

func (m *Manager) overlapsRunning(tables []string) bool {
	for _, t := range tables {
		if m.runningHolds(t) {
			return true
		}
	}
	return false
}

func overlapsQueued(queued []models.QueuedLockEntry, tables []string) bool {
	for _, e := range queued {
		for _, held := range e.Tables {
			for _, t := range tables {
				if t == held {
					return true
				}
			}
		}
	}
	return false
}

// NormalizeTables trims, drops empties, de-duplicates, and sorts a lock
// scope. The normalized form is what acquire decisions and persisted records
// use.
func NormalizeTables(tables []string) []string {
	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func copyTables(tables []string) []string {
	if tables == nil {
		return nil
	}
	out := make([]string, len(tables))
	copy(out, tables)
	return out
}
