// Package interfaces defines service, storage, and client contracts for the
// restore request service.
package interfaces

import (
	"context"

	"github.com/rezilient/restore-request-service/internal/models"
)

// JobStateStore is the durable single-document container for job records,
// audit streams, and lock state. Read returns a deep clone; Mutate runs fn on
// a working copy and atomically installs the result with version+1. Mutators
// must be deterministic on their input state and are serialized by the store.
type JobStateStore interface {
	Read(ctx context.Context) (*models.JobState, error)
	Mutate(ctx context.Context, fn func(*models.JobState) error) (*models.JobState, error)
	Version(ctx context.Context) (int64, error)
	Close() error
}

// PlanStateStore is the durable single-document container for plan records,
// with the same read-clone / serialized-mutate semantics as JobStateStore.
type PlanStateStore interface {
	Read(ctx context.Context) (*models.PlanState, error)
	Mutate(ctx context.Context, fn func(*models.PlanState) error) (*models.PlanState, error)
	Version(ctx context.Context) (int64, error)
	Close() error
}

// RestoreIndexQuery scopes a watermark read to one source.
type RestoreIndexQuery struct {
	TenantID   string
	InstanceID string
	Source     string
	Partitions []models.PartitionRef
	MeasuredAt string
}

// RestoreIndexReader is the read-only view of authoritative partition
// freshness. Partitions the index has no record of are returned with
// freshness "unknown" and reason_code blocked_freshness_unknown.
type RestoreIndexReader interface {
	ReadWatermarksForPartitions(ctx context.Context, q RestoreIndexQuery) ([]models.Watermark, error)
	ListWatermarksForSource(ctx context.Context, q RestoreIndexQuery) ([]models.Watermark, error)
}

// StorageManager coordinates the snapshot stores and the restore index behind
// one backend selection.
type StorageManager interface {
	JobStateStore() JobStateStore
	PlanStateStore() PlanStateStore
	RestoreIndex() RestoreIndexReader

	Close() error
}
