package server

import (
	"net/http"
	"strings"

	"github.com/rezilient/restore-request-service/internal/models"
)

// handleJobCreate handles POST /v1/jobs.
func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		WriteRequestError(w, unauthorized(models.ReasonDeniedTokenMalformed, "missing authentication"))
		return
	}

	var req models.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), &req, claims)
	if err != nil {
		reqErr := models.AsRequestError(err)
		if reqErr.ReasonCode == models.ReasonBlockedAuthControlPlaneOutage {
			s.metrics.RecordACPOutage()
		}
		if reqErr.ReasonCode == models.ReasonBlockedPlanHashMismatch {
			s.metrics.RecordPlanHashConflict()
		}
		WriteRequestError(w, err)
		return
	}

	s.updateLockGauges(r)
	WriteJSON(w, http.StatusCreated, map[string]any{"job": job})
}

// handleJobList handles GET /v1/jobs.
func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		WriteRequestError(w, unauthorized(models.ReasonDeniedTokenMalformed, "missing authentication"))
		return
	}

	jobs, err := s.jobs.ListJobs(r.Context(), claims)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*models.JobRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// routeJobs dispatches /v1/jobs/{job_id} and its lifecycle actions.
func (s *Server) routeJobs(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if rest == "" {
		WriteRequestError(w, models.BadRequest("job_id is required in path"))
		return
	}

	jobID, action, _ := strings.Cut(rest, "/")
	if jobID == "" {
		WriteRequestError(w, models.BadRequest("job_id is required in path"))
		return
	}

	switch action {
	case "":
		s.handleJobGet(w, r, jobID)
	case "complete":
		s.handleJobComplete(w, r, jobID)
	case "pause":
		s.handleJobPause(w, r, jobID)
	case "resume":
		s.handleJobResume(w, r, jobID)
	case "events":
		s.handleJobEvents(w, r, jobID)
	default:
		WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error:      models.ErrCodeNotFound,
			ReasonCode: models.ReasonNone,
			Message:    "unknown job action",
		})
	}
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) handleJobComplete(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.CompleteJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.jobs.CompleteJob(r.Context(), jobID, &req)
	if err != nil {
		WriteRequestError(w, err)
		return
	}

	s.metrics.RecordJobCompleted(result.Job.Status)
	s.updateLockGauges(r)
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleJobPause(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ReasonCode models.ReasonCode `json:"reason_code"`
	}
	if r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	job, err := s.jobs.PauseJob(r.Context(), jobID, req.ReasonCode)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) handleJobResume(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	job, err := s.jobs.ResumePausedJob(r.Context(), jobID)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	events, err := s.jobs.ListJobEvents(r.Context(), jobID)
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	if events == nil {
		events = []models.CrossServiceAuditEvent{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleLocks handles GET /v1/locks.
func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := s.jobs.LockSnapshot(r.Context())
	if err != nil {
		WriteRequestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// updateLockGauges refreshes the running/queued gauges after a mutation.
func (s *Server) updateLockGauges(r *http.Request) {
	snapshot, err := s.jobs.LockSnapshot(r.Context())
	if err != nil {
		return
	}
	s.metrics.SetLockStats(len(snapshot.Running), len(snapshot.Queued))
}
