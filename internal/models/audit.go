package models

import (
	"sort"
	"time"
)

// Audit event types. Every job's stream begins with job_created.
const (
	EventJobCreated   = "job_created"
	EventJobQueued    = "job_queued"
	EventJobStarted   = "job_started"
	EventJobPaused    = "job_paused"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
	EventJobCancelled = "job_cancelled"
)

// EventTimeFormat is the ISO-with-milliseconds form audit timestamps use.
// Fixed-width UTC so lexicographic order equals chronological order.
const EventTimeFormat = "2006-01-02T15:04:05.000Z"

// FormatEventTime renders t in the audit timestamp form.
func FormatEventTime(t time.Time) string {
	return t.UTC().Format(EventTimeFormat)
}

// AuditEvent is an immutable record of one job state transition. Details is an
// opaque mapping carried through to the cross-service stream.
type AuditEvent struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	JobID      string         `json:"job_id"`
	ReasonCode ReasonCode     `json:"reason_code"`
	CreatedAt  string         `json:"created_at"`
	Details    map[string]any `json:"details,omitempty"`
}

// CrossServiceAuditEvent is the replay-ordered form shared with downstream
// services: the internal event plus the owning scope and plan identity.
type CrossServiceAuditEvent struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	JobID      string         `json:"job_id"`
	TenantID   string         `json:"tenant_id"`
	InstanceID string         `json:"instance_id"`
	Source     string         `json:"source"`
	PlanID     string         `json:"plan_id"`
	PlanHash   string         `json:"plan_hash"`
	ReasonCode ReasonCode     `json:"reason_code"`
	CreatedAt  string         `json:"created_at"`
	Details    map[string]any `json:"details,omitempty"`
}

// SortReplayOrder sorts events by the documented replay comparator:
// created_at, then event_id lexicographic. Events with equal timestamps are
// ordered by event_id; the sort is stable, so only events equal on both keys
// keep their input order.
func SortReplayOrder(events []CrossServiceAuditEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt < events[j].CreatedAt
		}
		return events[i].EventID < events[j].EventID
	})
}
