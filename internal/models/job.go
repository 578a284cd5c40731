package models

import "time"

// Job status constants.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusPaused    = "paused"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// TerminalStatus reports whether status is absorbing.
func TerminalStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobRecord is a scheduled restore job. QueuePosition is non-nil iff the job
// is queued; StartedAt is non-nil iff the job has ever run.
type JobRecord struct {
	JobID      string `json:"job_id"`
	TenantID   string `json:"tenant_id"`
	InstanceID string `json:"instance_id"`
	Source     string `json:"source"`

	PlanID   string `json:"plan_id"`
	PlanHash string `json:"plan_hash"`

	Status           string     `json:"status"`
	StatusReasonCode ReasonCode `json:"status_reason_code"`
	QueuePosition    *int       `json:"queue_position,omitempty"`
	WaitTables       []string   `json:"wait_tables,omitempty"`

	LockScopeTables      []string `json:"lock_scope_tables"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`

	RequestedBy string    `json:"requested_by,omitempty"`
	Approval    *Approval `json:"approval,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Scope returns the job's source scope triple.
func (j *JobRecord) Scope() SourceScope {
	return SourceScope{TenantID: j.TenantID, InstanceID: j.InstanceID, Source: j.Source}
}

// CreateJobRequest is the wire body of POST /v1/jobs.
type CreateJobRequest struct {
	TenantID             string    `json:"tenant_id"`
	InstanceID           string    `json:"instance_id"`
	Source               string    `json:"source"`
	PlanID               string    `json:"plan_id"`
	PlanHash             string    `json:"plan_hash"`
	LockScopeTables      []string  `json:"lock_scope_tables"`
	RequiredCapabilities []string  `json:"required_capabilities,omitempty"`
	RequestedBy          string    `json:"requested_by"`
	Approval             *Approval `json:"approval,omitempty"`
}

// Scope returns the request's source scope triple.
func (r *CreateJobRequest) Scope() SourceScope {
	return SourceScope{TenantID: r.TenantID, InstanceID: r.InstanceID, Source: r.Source}
}

// CompleteJobRequest is the wire body of POST /v1/jobs/{job_id}/complete.
type CompleteJobRequest struct {
	Status     string     `json:"status"`
	ReasonCode ReasonCode `json:"reason_code,omitempty"`
}

// CompleteJobResult pairs the terminal job with the jobs its release promoted.
type CompleteJobResult struct {
	Job            *JobRecord `json:"job"`
	PromotedJobIDs []string   `json:"promoted_job_ids"`
}

// DryRunPlanRequest is the wire body of POST /v1/plans/dry-run.
type DryRunPlanRequest struct {
	TenantID        string   `json:"tenant_id"`
	InstanceID      string   `json:"instance_id"`
	Source          string   `json:"source"`
	PlanID          string   `json:"plan_id"`
	LockScopeTables []string `json:"lock_scope_tables"`

	PIT              PITContract       `json:"pit"`
	Scope            PlanScope         `json:"scope"`
	ExecutionOptions ExecutionOptions  `json:"execution_options"`
	Rows             []PlanRow         `json:"rows"`
	Conflicts        []PlanConflict    `json:"conflicts,omitempty"`
	DeleteCandidates []DeleteCandidate `json:"delete_candidates,omitempty"`
	MediaCandidates  []MediaCandidate  `json:"media_candidates,omitempty"`
	Watermarks       []WatermarkHint   `json:"watermarks,omitempty"`
	PITCandidates    []PITCandidate    `json:"pit_candidates,omitempty"`

	RequestedBy string    `json:"requested_by"`
	Approval    *Approval `json:"approval,omitempty"`
}

// SourceScope returns the request's scope triple.
func (r *DryRunPlanRequest) SourceScope() SourceScope {
	return SourceScope{TenantID: r.TenantID, InstanceID: r.InstanceID, Source: r.Source}
}
