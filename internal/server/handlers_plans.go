package server

import (
	"net/http"

	"github.com/rezilient/restore-request-service/internal/models"
)

// handlePlanDryRun handles POST /v1/plans/dry-run.
func (s *Server) handlePlanDryRun(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		WriteRequestError(w, unauthorized(models.ReasonDeniedTokenMalformed, "missing authentication"))
		return
	}

	var req models.DryRunPlanRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	record, created, err := s.plans.CreateDryRunPlan(r.Context(), &req, claims)
	if err != nil {
		s.recordPlanFailure(err)
		WriteRequestError(w, err)
		return
	}

	s.metrics.RecordGateDecision(record.Gate.Decision)

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	WriteJSON(w, status, map[string]any{"plan": record})
}

// routePlans dispatches GET /v1/plans/{plan_id}.
func (s *Server) routePlans(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		WriteRequestError(w, unauthorized(models.ReasonDeniedTokenMalformed, "missing authentication"))
		return
	}

	planID := PathParam(r, "/v1/plans/", "")
	if planID == "" {
		WriteRequestError(w, models.BadRequest("plan_id is required in path"))
		return
	}

	record, err := s.plans.GetPlan(r.Context(), planID, claims)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"plan": record})
}

// handlePlanList handles GET /v1/plans.
func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		WriteRequestError(w, unauthorized(models.ReasonDeniedTokenMalformed, "missing authentication"))
		return
	}

	records, err := s.plans.ListPlans(r.Context(), claims)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	if records == nil {
		records = []*models.PlanRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"plans": records})
}

func (s *Server) recordPlanFailure(err error) {
	reqErr := models.AsRequestError(err)
	switch reqErr.ReasonCode {
	case models.ReasonBlockedPlanHashMismatch:
		s.metrics.RecordPlanHashConflict()
	case models.ReasonBlockedAuthControlPlaneOutage:
		s.metrics.RecordACPOutage()
	}
}
