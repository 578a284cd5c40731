// Package plan implements the dry-run plan service: deterministic plan-hash
// computation, freshness evaluation against the authoritative restore index,
// and the executability gate.
package plan

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
	"github.com/rezilient/restore-request-service/internal/services/scopelock"
)

// Service owns plan records. All writes go through the plan snapshot store's
// mutate, which serializes them.
type Service struct {
	store  interfaces.PlanStateStore
	index  interfaces.RestoreIndexReader
	scopes interfaces.ScopeValidator
	logger *common.Logger
	now    func() time.Time
}

// NewService creates the plan service.
func NewService(store interfaces.PlanStateStore, index interfaces.RestoreIndexReader, scopes interfaces.ScopeValidator, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		index:  index,
		scopes: scopes,
		logger: logger,
		now:    time.Now,
	}
}

// CreateDryRunPlan validates, reads authoritative watermarks, computes the
// plan hash, evaluates the gate, resolves PIT candidates, and persists the
// record. Replaying an identical plan_id+hash returns the stored record with
// created=false; a differing hash for a known plan_id is a hard conflict.
func (s *Service) CreateDryRunPlan(ctx context.Context, req *models.DryRunPlanRequest, claims models.SourceScope) (*models.PlanRecord, bool, error) {
	if err := validateDryRunRequest(req); err != nil {
		return nil, false, err
	}

	if err := s.scopes.ValidateScope(ctx, claims, req.SourceScope()); err != nil {
		return nil, false, err
	}

	watermarks, err := s.readWatermarks(ctx, req)
	if err != nil {
		return nil, false, err
	}

	counts := CountActions(req)
	hashInput := BuildPlanHashInput(req, counts)
	planHash, err := ComputePlanHash(hashInput)
	if err != nil {
		return nil, false, models.AsRequestError(fmt.Errorf("failed to compute plan hash: %w", err))
	}

	gate := EvaluateGate(req, watermarks)
	resolutions := ResolvePIT(req.PITCandidates)
	now := s.now().UTC()

	record := &models.PlanRecord{
		PlanID:           req.PlanID,
		TenantID:         req.TenantID,
		InstanceID:       req.InstanceID,
		Source:           req.Source,
		PlanHash:         planHash,
		LockScopeTables:  scopelock.NormalizeTables(req.LockScopeTables),
		PIT:              req.PIT,
		Scope:            req.Scope,
		ExecutionOptions: req.ExecutionOptions,
		Rows:             hashInput.Rows,
		Conflicts:        req.Conflicts,
		DeleteCandidates: req.DeleteCandidates,
		MediaCandidates:  hashInput.MediaCandidates,
		ActionCounts:     counts,
		Gate:             gate,
		PITResolutions:   resolutions,
		Watermarks:       watermarks,
		Approval:         req.Approval,
		RequestedBy:      req.RequestedBy,
		GeneratedAt:      now,
		UpdatedAt:        now,
	}

	created := true

	newState, err := s.store.Mutate(ctx, func(state *models.PlanState) error {
		existing, ok := state.Plans[req.PlanID]
		if ok && !existing.Placeholder {
			if existing.PlanHash != planHash {
				return models.NewRequestError(http.StatusConflict, models.ErrCodeConflict,
					models.ReasonBlockedPlanHashMismatch,
					fmt.Sprintf("plan %s already exists with a different plan_hash", req.PlanID))
			}
			created = false
			return nil
		}
		if ok && existing.Placeholder && existing.PlanHash != planHash {
			return models.NewRequestError(http.StatusConflict, models.ErrCodeConflict,
				models.ReasonBlockedPlanHashMismatch,
				fmt.Sprintf("plan %s was admitted with a different plan_hash", req.PlanID))
		}

		state.Plans[req.PlanID] = record
		return nil
	})
	if err != nil {
		return nil, false, models.AsRequestError(err)
	}

	stored := newState.Plans[req.PlanID]

	s.logger.Info().
		Str("plan_id", req.PlanID).
		Str("plan_hash", planHash).
		Str("gate", stored.Gate.Decision).
		Str("reason_code", string(stored.Gate.ReasonCode)).
		Bool("created", created).
		Msg("Dry-run plan evaluated")

	return stored, created, nil
}

// GetPlan returns the plan record for planID, scoped to the claims triple.
func (s *Service) GetPlan(ctx context.Context, planID string, claims models.SourceScope) (*models.PlanRecord, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	record, ok := state.Plans[planID]
	if !ok || !claims.Equal(models.SourceScope{TenantID: record.TenantID, InstanceID: record.InstanceID, Source: record.Source}) {
		return nil, models.NewRequestError(http.StatusNotFound, models.ErrCodeNotFound, models.ReasonNone,
			fmt.Sprintf("plan %s not found", planID))
	}
	return record, nil
}

// ListPlans returns the plans owned by the claims scope, newest first.
func (s *Service) ListPlans(ctx context.Context, claims models.SourceScope) ([]*models.PlanRecord, error) {
	state, err := s.store.Read(ctx)
	if err != nil {
		return nil, models.AsRequestError(err)
	}

	var out []*models.PlanRecord
	for _, record := range state.Plans {
		if claims.Equal(models.SourceScope{TenantID: record.TenantID, InstanceID: record.InstanceID, Source: record.Source}) {
			out = append(out, record)
		}
	}
	sortPlansNewestFirst(out)
	return out, nil
}

// readWatermarks derives the partitions to check and reads the authoritative
// index. Preference order: partitions from row metadata; otherwise the source
// listing intersected by row topics (or hint topics); otherwise per-partition
// reads over the hint partitions, which fail closed as unknown.
func (s *Service) readWatermarks(ctx context.Context, req *models.DryRunPlanRequest) ([]models.Watermark, error) {
	measuredAt := models.FormatEventTime(s.now())
	query := interfaces.RestoreIndexQuery{
		TenantID:   req.TenantID,
		InstanceID: req.InstanceID,
		Source:     req.Source,
		MeasuredAt: measuredAt,
	}

	rowPartitions := DerivePartitions(req.Rows)
	if len(rowPartitions) > 0 {
		query.Partitions = rowPartitions
		watermarks, err := s.index.ReadWatermarksForPartitions(ctx, query)
		if err != nil {
			return nil, s.freshnessUnavailable(err)
		}
		return watermarks, nil
	}

	listed, err := s.index.ListWatermarksForSource(ctx, query)
	if err != nil {
		return nil, s.freshnessUnavailable(err)
	}

	topics := RowTopics(req.Rows)
	if len(topics) == 0 {
		topics = HintTopics(req.Watermarks)
	}

	var filtered []models.Watermark
	for _, w := range listed {
		if _, ok := topics[w.Topic]; ok {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) > 0 {
		return filtered, nil
	}

	hintPartitions := HintPartitions(req.Watermarks)
	if len(hintPartitions) == 0 {
		return nil, nil
	}
	query.Partitions = hintPartitions
	watermarks, err := s.index.ReadWatermarksForPartitions(ctx, query)
	if err != nil {
		return nil, s.freshnessUnavailable(err)
	}
	return watermarks, nil
}

func (s *Service) freshnessUnavailable(err error) *models.RequestError {
	s.logger.Warn().Err(err).Msg("Restore index read failed")
	return models.NewRequestError(http.StatusServiceUnavailable, models.ErrCodeUpstreamUnavailable,
		models.ReasonBlockedFreshnessUnknown, "authoritative freshness index is unavailable")
}

func sortPlansNewestFirst(plans []*models.PlanRecord) {
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].GeneratedAt.Equal(plans[j].GeneratedAt) {
			return plans[i].GeneratedAt.After(plans[j].GeneratedAt)
		}
		return plans[i].PlanID < plans[j].PlanID
	})
}
