package interfaces

import (
	"context"

	"github.com/rezilient/restore-request-service/internal/models"
)

// PlanService owns dry-run plan records: hashing, freshness evaluation, and
// the executability gate.
type PlanService interface {
	// CreateDryRunPlan validates, hashes, gates, and persists a dry-run plan.
	// Replaying an identical plan_id+hash returns the stored record with
	// created=false. Failures return *models.RequestError.
	CreateDryRunPlan(ctx context.Context, req *models.DryRunPlanRequest, claims models.SourceScope) (record *models.PlanRecord, created bool, err error)

	// GetPlan returns the plan record for planID scoped to claims.
	GetPlan(ctx context.Context, planID string, claims models.SourceScope) (*models.PlanRecord, error)

	// ListPlans returns all plan records for the authenticated scope.
	ListPlans(ctx context.Context, claims models.SourceScope) ([]*models.PlanRecord, error)
}

// JobService owns job records, lock admission, lifecycle transitions, and
// audit emission.
type JobService interface {
	// CreateJob admits a job under the table-scope lock. The returned job is
	// running or queued. Failures return *models.RequestError.
	CreateJob(ctx context.Context, req *models.CreateJobRequest, claims models.SourceScope) (*models.JobRecord, error)

	// CompleteJob moves a job to a terminal status and promotes the FIFO head
	// set freed by its lock release.
	CompleteJob(ctx context.Context, jobID string, req *models.CompleteJobRequest) (*models.CompleteJobResult, error)

	// PauseJob pauses a running job, keeping its lock held.
	PauseJob(ctx context.Context, jobID string, reason models.ReasonCode) (*models.JobRecord, error)

	// ResumePausedJob returns a paused job to running.
	ResumePausedJob(ctx context.Context, jobID string) (*models.JobRecord, error)

	// GetJob returns the job record for jobID.
	GetJob(ctx context.Context, jobID string) (*models.JobRecord, error)

	// ListJobs returns all jobs for the authenticated scope.
	ListJobs(ctx context.Context, claims models.SourceScope) ([]*models.JobRecord, error)

	// ListJobEvents returns the job's cross-service audit stream in replay
	// order.
	ListJobEvents(ctx context.Context, jobID string) ([]models.CrossServiceAuditEvent, error)

	// LockSnapshot returns the current running/queued lock view.
	LockSnapshot(ctx context.Context) (*models.LockSnapshot, error)
}

// ScopeValidator enforces the claims/request/mapping triple coupling shared
// by the plan and job services.
type ScopeValidator interface {
	// ValidateScope returns nil when claims, request scope, and the ACP
	// mapping all agree and the mapping is active. Failures return
	// *models.RequestError carrying the blocking reason code.
	ValidateScope(ctx context.Context, claims, requested models.SourceScope) error
}
