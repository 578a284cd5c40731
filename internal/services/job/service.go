// Package job implements the restore-job service: admission under the
// table-scope lock, the lifecycle state machine, and audit emission. Every
// state change happens inside the job snapshot store's mutate, with lock
// state rehydrated at the start and exported at the end, so audit events can
// never reference a transition that was rolled back.
package job

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
	"github.com/rezilient/restore-request-service/internal/services/audit"
	"github.com/rezilient/restore-request-service/internal/services/scopelock"
)

var planHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Service owns job records, their audit streams, and the persisted lock
// state.
type Service struct {
	store      interfaces.JobStateStore
	plans      interfaces.PlanStateStore
	scopes     interfaces.ScopeValidator
	executor   common.ExecutorConfig
	normalizer *audit.Normalizer
	logger     *common.Logger
	now        func() time.Time
}

// NewService creates the job service.
func NewService(store interfaces.JobStateStore, plans interfaces.PlanStateStore, scopes interfaces.ScopeValidator, executor common.ExecutorConfig, logger *common.Logger) *Service {
	return &Service{
		store:      store,
		plans:      plans,
		scopes:     scopes,
		executor:   executor,
		normalizer: audit.NewNormalizer(),
		logger:     logger,
		now:        time.Now,
	}
}

// CreateJob admits a job: scope validation, capability check, plan-hash
// consistency (lazily creating a placeholder plan when none exists), then
// lock acquisition and materialization of the record with its first events.
func (s *Service) CreateJob(ctx context.Context, req *models.CreateJobRequest, claims models.SourceScope) (*models.JobRecord, error) {
	if err := validateCreateJobRequest(req); err != nil {
		return nil, err
	}

	if err := s.scopes.ValidateScope(ctx, claims, req.Scope()); err != nil {
		return nil, err
	}

	if missing := s.executor.Missing(req.RequiredCapabilities); len(missing) > 0 {
		return nil, models.NewRequestError(http.StatusConflict, models.ErrCodeConflict,
			models.ReasonBlockedMissingCapability,
			fmt.Sprintf("executor does not offer capabilities: %s", strings.Join(missing, ", ")))
	}

	tables := scopelock.NormalizeTables(req.LockScopeTables)
	now := s.now().UTC()

	// Plan-hash consistency lives in the plan snapshot. A placeholder is
	// created when the dry-run has not been submitted yet.
	_, err := s.plans.Mutate(ctx, func(state *models.PlanState) error {
		existing, ok := state.Plans[req.PlanID]
		if ok {
			if existing.PlanHash != req.PlanHash {
				return models.NewRequestError(http.StatusConflict, models.ErrCodeConflict,
					models.ReasonBlockedPlanHashMismatch,
					fmt.Sprintf("plan %s exists with a different plan_hash", req.PlanID))
			}
			return nil
		}
		state.Plans[req.PlanID] = &models.PlanRecord{
			PlanID:          req.PlanID,
			TenantID:        req.TenantID,
			InstanceID:      req.InstanceID,
			Source:          req.Source,
			PlanHash:        req.PlanHash,
			LockScopeTables: tables,
			Approval:        req.Approval,
			RequestedBy:     req.RequestedBy,
			Placeholder:     true,
			GeneratedAt:     now,
			UpdatedAt:       now,
		}
		return nil
	})
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	jobID := "job_" + uuid.New().String()

	newState, err := s.store.Mutate(ctx, func(state *models.JobState) error {
		lm := scopelock.Load(state.Lock)
		decision := lm.Acquire(jobID, req.TenantID, req.InstanceID, tables)

		job := &models.JobRecord{
			JobID:                jobID,
			TenantID:             req.TenantID,
			InstanceID:           req.InstanceID,
			Source:               req.Source,
			PlanID:               req.PlanID,
			PlanHash:             req.PlanHash,
			Status:               models.JobStatusQueued,
			StatusReasonCode:     decision.ReasonCode,
			LockScopeTables:      tables,
			RequiredCapabilities: req.RequiredCapabilities,
			RequestedBy:          req.RequestedBy,
			Approval:             req.Approval,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		s.appendEvent(state, jobID, models.EventJobCreated, models.ReasonNone, map[string]any{
			"plan_id":   req.PlanID,
			"plan_hash": req.PlanHash,
		})

		if decision.State == scopelock.StateRunning {
			job.Status = models.JobStatusRunning
			started := now
			job.StartedAt = &started
			s.appendEvent(state, jobID, models.EventJobStarted, models.ReasonNone, nil)
		} else {
			job.QueuePosition = decision.QueuePosition
			job.WaitTables = decision.BlockedTables
			s.appendEvent(state, jobID, models.EventJobQueued, decision.ReasonCode, map[string]any{
				"queue_position": *decision.QueuePosition,
				"blocked_tables": decision.BlockedTables,
			})
		}

		state.Jobs[jobID] = job
		state.Lock = lm.Export()
		return nil
	})
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	created := newState.Jobs[jobID]

	s.logger.Info().
		Str("job_id", created.JobID).
		Str("plan_id", created.PlanID).
		Str("status", created.Status).
		Str("reason_code", string(created.StatusReasonCode)).
		Msg("Job admitted")

	return created, nil
}

// CompleteJob moves a job to a terminal status. The lock entry is released —
// whether the job was running, paused, or still queued — and the FIFO head
// set freed by the release is promoted to running.
func (s *Service) CompleteJob(ctx context.Context, jobID string, req *models.CompleteJobRequest) (*models.CompleteJobResult, error) {
	var terminalEvent string
	switch req.Status {
	case models.JobStatusCompleted:
		terminalEvent = models.EventJobCompleted
	case models.JobStatusFailed:
		terminalEvent = models.EventJobFailed
	case models.JobStatusCancelled:
		terminalEvent = models.EventJobCancelled
	default:
		return nil, models.BadRequest(fmt.Sprintf("status %q is not a terminal status", req.Status))
	}

	reason := req.ReasonCode
	if reason == "" {
		reason = models.ReasonNone
	}
	if !reason.Valid() {
		return nil, models.BadRequest(fmt.Sprintf("reason_code %q is not a known reason code", reason))
	}

	result := &models.CompleteJobResult{PromotedJobIDs: []string{}}

	newState, err := s.store.Mutate(ctx, func(state *models.JobState) error {
		job, ok := state.Jobs[jobID]
		if !ok {
			return models.NewRequestError(http.StatusNotFound, models.ErrCodeNotFound, models.ReasonNone,
				fmt.Sprintf("job %s not found", jobID))
		}
		if models.TerminalStatus(job.Status) {
			return models.NewRequestError(http.StatusConflict, models.ErrCodeAlreadyTerminal, models.ReasonNone,
				fmt.Sprintf("job %s is already %s", jobID, job.Status))
		}

		now := s.now().UTC()
		lm := scopelock.Load(state.Lock)
		release := lm.Release(jobID)

		job.Status = req.Status
		job.StatusReasonCode = reason
		job.QueuePosition = nil
		job.WaitTables = nil
		job.CompletedAt = &now
		job.UpdatedAt = now

		s.appendEvent(state, jobID, terminalEvent, reason, map[string]any{
			"released_tables": release.Released,
		})

		for _, promo := range release.Promoted {
			promoted, ok := state.Jobs[promo.JobID]
			if !ok {
				continue
			}
			promoted.Status = models.JobStatusRunning
			promoted.StatusReasonCode = models.ReasonNone
			promoted.QueuePosition = nil
			promoted.WaitTables = nil
			if promoted.StartedAt == nil {
				started := now
				promoted.StartedAt = &started
			}
			promoted.UpdatedAt = now

			s.appendEvent(state, promo.JobID, models.EventJobStarted, promo.ReasonCode, map[string]any{
				"promoted_after": jobID,
			})
			result.PromotedJobIDs = append(result.PromotedJobIDs, promo.JobID)
		}

		refreshQueuePositions(state, lm, now)
		state.Lock = lm.Export()
		return nil
	})
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	result.Job = newState.Jobs[jobID]

	s.logger.Info().
		Str("job_id", jobID).
		Str("status", result.Job.Status).
		Str("reason_code", string(result.Job.StatusReasonCode)).
		Int("promoted", len(result.PromotedJobIDs)).
		Msg("Job completed")

	return result, nil
}

// PauseJob pauses a running job. The lock stays held so the job's tables
// remain fenced while paused.
func (s *Service) PauseJob(ctx context.Context, jobID string, reason models.ReasonCode) (*models.JobRecord, error) {
	if reason == "" {
		reason = models.ReasonPausedTokenRefreshGraceExhausted
	}
	if !reason.IsPauseReason() {
		return nil, models.BadRequest(fmt.Sprintf("reason_code %q is not a pause reason", reason))
	}

	newState, err := s.store.Mutate(ctx, func(state *models.JobState) error {
		job, ok := state.Jobs[jobID]
		if !ok {
			return models.NewRequestError(http.StatusNotFound, models.ErrCodeNotFound, models.ReasonNone,
				fmt.Sprintf("job %s not found", jobID))
		}
		if models.TerminalStatus(job.Status) {
			return models.NewRequestError(http.StatusConflict, models.ErrCodeAlreadyTerminal, models.ReasonNone,
				fmt.Sprintf("job %s is already %s", jobID, job.Status))
		}
		if job.Status != models.JobStatusRunning {
			return models.NewRequestError(http.StatusConflict, models.ErrCodeConflict, models.ReasonNone,
				fmt.Sprintf("job %s is %s, not running", jobID, job.Status))
		}

		now := s.now().UTC()
		job.Status = models.JobStatusPaused
		job.StatusReasonCode = reason
		job.UpdatedAt = now

		s.appendEvent(state, jobID, models.EventJobPaused, reason, nil)
		return nil
	})
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	s.logger.Info().Str("job_id", jobID).Str("reason_code", string(reason)).Msg("Job paused")
	return newState.Jobs[jobID], nil
}

// ResumePausedJob returns a paused job to running.
func (s *Service) ResumePausedJob(ctx context.Context, jobID string) (*models.JobRecord, error) {
	newState, err := s.store.Mutate(ctx, func(state *models.JobState) error {
		job, ok := state.Jobs[jobID]
		if !ok {
			return models.NewRequestError(http.StatusNotFound, models.ErrCodeNotFound, models.ReasonNone,
				fmt.Sprintf("job %s not found", jobID))
		}
		if job.Status != models.JobStatusPaused {
			return models.NewRequestError(http.StatusConflict, models.ErrCodeConflict, models.ReasonNone,
				fmt.Sprintf("job %s is %s, not paused", jobID, job.Status))
		}

		now := s.now().UTC()
		job.Status = models.JobStatusRunning
		job.StatusReasonCode = models.ReasonNone
		job.UpdatedAt = now

		s.appendEvent(state, jobID, models.EventJobStarted, models.ReasonNone, map[string]any{
			"resumed_from_pause": true,
		})
		return nil
	})
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job resumed")
	return newState.Jobs[jobID], nil
}

// GetJob returns the job record for jobID.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.JobRecord, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, models.AsRequestError(err)
	}
	job, ok := state.Jobs[jobID]
	if !ok {
		return nil, models.NewRequestError(http.StatusNotFound, models.ErrCodeNotFound, models.ReasonNone,
			fmt.Sprintf("job %s not found", jobID))
	}
	return job, nil
}

// ListJobs returns the jobs owned by the claims scope, oldest first.
func (s *Service) ListJobs(ctx context.Context, claims models.SourceScope) ([]*models.JobRecord, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	var out []*models.JobRecord
	for _, job := range state.Jobs {
		if claims.Equal(job.Scope()) {
			out = append(out, job)
		}
	}
	sortJobsOldestFirst(out)
	return out, nil
}

// ListJobEvents returns the job's cross-service audit stream in replay order.
func (s *Service) ListJobEvents(ctx context.Context, jobID string) ([]models.CrossServiceAuditEvent, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, models.AsRequestError(err)
	}
	job, ok := state.Jobs[jobID]
	if !ok {
		return nil, models.NewRequestError(http.StatusNotFound, models.ErrCodeNotFound, models.ReasonNone,
			fmt.Sprintf("job %s not found", jobID))
	}
	return s.normalizer.Normalize(job, state.Events[jobID]), nil
}

// LockSnapshot returns the current running/queued lock view.
func (s *Service) LockSnapshot(ctx context.Context) (*models.LockSnapshot, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, models.AsRequestError(err)
	}
	snapshot := scopelock.Load(state.Lock).Snapshot()
	return &snapshot, nil
}

// appendEvent adds one audit event to the job's stream. Event ids embed the
// per-job sequence so the replay comparator (created_at, event_id) preserves
// the order produced within a single mutate.
func (s *Service) appendEvent(state *models.JobState, jobID, eventType string, reason models.ReasonCode, details map[string]any) {
	seq := len(state.Events[jobID]) + 1
	event := &models.AuditEvent{
		EventID:    fmt.Sprintf("evt_%06d_%s", seq, uuid.New().String()[:8]),
		EventType:  eventType,
		JobID:      jobID,
		ReasonCode: reason,
		CreatedAt:  models.FormatEventTime(s.now()),
		Details:    details,
	}
	state.Events[jobID] = append(state.Events[jobID], event)
}

// refreshQueuePositions re-stamps queue_position (and updated_at when it
// changes) on every still-queued job after the queue changed shape; wait
// tables are left as recorded.
func refreshQueuePositions(state *models.JobState, lm *scopelock.Manager, now time.Time) {
	for i, entry := range lm.Export().QueuedJobs {
		job, ok := state.Jobs[entry.JobID]
		if !ok {
			continue
		}
		pos := i + 1
		if job.QueuePosition == nil || *job.QueuePosition != pos {
			job.QueuePosition = &pos
			job.UpdatedAt = now
		}
	}
}

func validateCreateJobRequest(req *models.CreateJobRequest) *models.RequestError {
	if strings.TrimSpace(req.TenantID) == "" {
		return models.BadRequest("tenant_id is required")
	}
	if strings.TrimSpace(req.InstanceID) == "" {
		return models.BadRequest("instance_id is required")
	}
	if strings.TrimSpace(req.Source) == "" {
		return models.BadRequest("source is required")
	}
	if strings.TrimSpace(req.PlanID) == "" {
		return models.BadRequest("plan_id is required")
	}
	if !planHashPattern.MatchString(req.PlanHash) {
		return models.BadRequest("plan_hash must be 64 lowercase hex characters")
	}
	if len(scopelock.NormalizeTables(req.LockScopeTables)) == 0 {
		return models.BadRequest("lock_scope_tables must not be empty")
	}
	return nil
}

func sortJobsOldestFirst(jobs []*models.JobRecord) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].JobID < jobs[j].JobID
	})
}
