// Package server exposes the restore request service over JSON HTTP: bearer
// auth middleware, the /v1 API, and the unauthenticated system endpoints.
package server

import (
	"net/http"
	"runtime"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/metrics"
)

// Server wires services into HTTP handlers.
type Server struct {
	config  *common.Config
	logger  *common.Logger
	auth    *Authenticator
	plans   interfaces.PlanService
	jobs    interfaces.JobService
	metrics *metrics.Collector
}

// NewServer creates the HTTP server wiring.
func NewServer(config *common.Config, logger *common.Logger, auth *Authenticator, plans interfaces.PlanService, jobs interfaces.JobService, collector *metrics.Collector) *Server {
	return &Server{
		config:  config,
		logger:  logger,
		auth:    auth,
		plans:   plans,
		jobs:    jobs,
		metrics: collector,
	}
}

// Handler builds the full middleware chain and route table.
func (s *Server) Handler() http.Handler {
	authed := bearerAuthMiddleware(s.auth)

	mux := http.NewServeMux()

	// System — unauthenticated
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.Handle("/metrics", s.metrics.Handler())

	// Plans
	mux.Handle("/v1/plans/dry-run", authed(http.HandlerFunc(s.handlePlanDryRun)))
	mux.Handle("/v1/plans/", authed(http.HandlerFunc(s.routePlans)))
	mux.Handle("/v1/plans", authed(http.HandlerFunc(s.handlePlanList)))

	// Jobs
	mux.Handle("/v1/jobs/", authed(http.HandlerFunc(s.routeJobs)))
	mux.Handle("/v1/jobs", authed(http.HandlerFunc(s.routeJobsRoot)))

	// Locks
	mux.Handle("/v1/locks", authed(http.HandlerFunc(s.handleLocks)))

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = correlationIDMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// routeJobsRoot dispatches /v1/jobs by method.
func (s *Server) routeJobsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleJobCreate(w, r)
	case http.MethodGet:
		s.handleJobList(w, r)
	default:
		RequireMethod(w, r, http.MethodPost, http.MethodGet)
	}
}

// handleHealth responds to GET/HEAD /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion responds to GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"commit":     common.GetGitCommit(),
		"go_version": runtime.Version(),
	})
}
