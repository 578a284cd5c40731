package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/metrics"
	"github.com/rezilient/restore-request-service/internal/models"
	jobsvc "github.com/rezilient/restore-request-service/internal/services/job"
	plansvc "github.com/rezilient/restore-request-service/internal/services/plan"
	"github.com/rezilient/restore-request-service/internal/services/registry"
	"github.com/rezilient/restore-request-service/internal/storage/memorydb"
)

const testHash = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

type testHarness struct {
	server *httptest.Server
	index  *memorydb.RestoreIndex
	token  string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Auth.JWTSecret = testSecret

	logger := common.NewSilentLogger()
	resolver := registry.NewLocalResolver([]common.StaticMapping{
		{TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev", AllowedServices: []string{"rrs"}},
	})
	validator := registry.NewValidator(resolver, "rrs", logger)

	jobStore := memorydb.NewJobStateStore()
	planStore := memorydb.NewPlanStateStore()
	index := memorydb.NewRestoreIndex()

	plans := plansvc.NewService(planStore, index, validator, logger)
	jobs := jobsvc.NewService(jobStore, planStore, validator, config.Executor, logger)

	srv := NewServer(config, logger, NewAuthenticator(config.Auth), plans, jobs, metrics.NewCollector())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testHarness{
		server: ts,
		index:  index,
		token:  mintToken(t, testSecret),
	}
}

func (h *testHarness) do(t *testing.T, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func jobCreateBody(planID string) map[string]any {
	return map[string]any{
		"tenant_id":         "acme",
		"instance_id":       "dev",
		"source":            "sn://acme-dev",
		"plan_id":           planID,
		"plan_hash":         testHash,
		"lock_scope_tables": []string{"incident"},
		"requested_by":      "ops@acme",
	}
}

func TestCreateJobEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-01"), h.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	job := body["job"].(map[string]any)
	assert.Equal(t, models.JobStatusRunning, job["status"])
	assert.Equal(t, "none", job["status_reason_code"])
	assert.Contains(t, job["job_id"], "job_")
}

func TestCreateJobRequiresBearerToken(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-01"), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "denied_token_malformed", body["reason_code"])
}

func TestCreateJobClaimsBodyMismatch(t *testing.T) {
	h := newHarness(t)

	mismatched := jobCreateBody("plan-01")
	mismatched["tenant_id"] = "intruder"
	resp, body := h.do(t, http.MethodPost, "/v1/jobs", mismatched, h.token)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "blocked_unknown_source_mapping", body["reason_code"])
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	_, first := h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-01"), h.token)
	firstID := first["job"].(map[string]any)["job_id"].(string)

	resp, second := h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-02"), h.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	secondJob := second["job"].(map[string]any)
	secondID := secondJob["job_id"].(string)
	assert.Equal(t, models.JobStatusQueued, secondJob["status"])
	assert.Equal(t, float64(1), secondJob["queue_position"])

	// Completing the first promotes the second.
	resp, completed := h.do(t, http.MethodPost, "/v1/jobs/"+firstID+"/complete",
		map[string]any{"status": "completed"}, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promoted := completed["promoted_job_ids"].([]any)
	require.Len(t, promoted, 1)
	assert.Equal(t, secondID, promoted[0])

	// Completing again conflicts.
	resp, body := h.do(t, http.MethodPost, "/v1/jobs/"+firstID+"/complete",
		map[string]any{"status": "completed"}, h.token)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_terminal", body["error"])

	// Pause and resume the promoted job.
	resp, _ = h.do(t, http.MethodPost, "/v1/jobs/"+secondID+"/pause", nil, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, resumed := h.do(t, http.MethodPost, "/v1/jobs/"+secondID+"/resume", nil, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.JobStatusRunning, resumed["job"].(map[string]any)["status"])

	// Audit stream for the promoted job.
	resp, events := h.do(t, http.MethodGet, "/v1/jobs/"+secondID+"/events", nil, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := events["events"].([]any)
	require.GreaterOrEqual(t, len(list), 4)
	assert.Equal(t, models.EventJobCreated, list[0].(map[string]any)["event_type"])
}

func TestDryRunPlanEndpoint(t *testing.T) {
	h := newHarness(t)
	h.index.Upsert(models.SourceScope{TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev"},
		models.Watermark{Topic: "rez.cdc", Partition: 3, Freshness: models.FreshnessFresh, Executability: models.ExecutabilityExecutable, ReasonCode: models.ReasonNone})

	planBody := map[string]any{
		"tenant_id":         "acme",
		"instance_id":       "dev",
		"source":            "sn://acme-dev",
		"plan_id":           "plan-01",
		"lock_scope_tables": []string{"incident"},
		"pit":               map[string]any{"point_in_time": "2026-01-15T00:00:00.000Z"},
		"scope":             map[string]any{"tables": []string{"incident"}},
		"execution_options": map[string]any{"batch_size": 100},
		"rows": []map[string]any{
			{"row_id": "row-1", "table": "incident", "action": "update", "topic": "rez.cdc", "partition": 3},
		},
		"requested_by": "ops@acme",
	}

	resp, body := h.do(t, http.MethodPost, "/v1/plans/dry-run", planBody, h.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	plan := body["plan"].(map[string]any)
	hash := plan["plan_hash"].(string)
	require.Len(t, hash, 64)
	gate := plan["gate"].(map[string]any)
	assert.Equal(t, models.GateExecutable, gate["decision"])

	// Identical resubmission is idempotent.
	resp, body = h.do(t, http.MethodPost, "/v1/plans/dry-run", planBody, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, hash, body["plan"].(map[string]any)["plan_hash"])

	// A divergent payload conflicts.
	planBody["rows"] = []map[string]any{
		{"row_id": "row-1", "table": "incident", "action": "delete", "topic": "rez.cdc", "partition": 3},
	}
	resp, body = h.do(t, http.MethodPost, "/v1/plans/dry-run", planBody, h.token)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "blocked_plan_hash_mismatch", body["reason_code"])

	// The plan is readable back.
	resp, body = h.do(t, http.MethodGet, "/v1/plans/plan-01", nil, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, hash, body["plan"].(map[string]any)["plan_hash"])
}

func TestDryRunPlanStructuralError(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/v1/plans/dry-run",
		map[string]any{"tenant_id": "acme"}, h.token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestLocksEndpoint(t *testing.T) {
	h := newHarness(t)

	h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-01"), h.token)
	h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-02"), h.token)

	resp, body := h.do(t, http.MethodGet, "/v1/locks", nil, h.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["running"].([]any), 1)
	assert.Len(t, body["queued"].([]any), 1)
}

func TestHealthAndVersionAreUnauthenticated(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, _ = h.do(t, http.MethodGet, "/api/version", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	h := newHarness(t)

	h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-01"), h.token)

	resp, err := http.Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rrs_jobs_running")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(t, http.MethodDelete, "/v1/jobs", nil, h.token)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUnknownJobIs404(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/v1/jobs/job_missing", nil, h.token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])
}

func TestExpiredTokenIs401WithReason(t *testing.T) {
	h := newHarness(t)

	expired := mintToken(t, testSecret, func(c *TokenClaims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	})
	resp, body := h.do(t, http.MethodGet, "/v1/jobs", nil, expired)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "denied_token_expired", body["reason_code"])
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

func jobCreateBodyWithHash(planID, hash string) map[string]any {
	body := jobCreateBody(planID)
	body["plan_hash"] = hash
	return body
}

func TestCreateJobPlanHashMismatchOverHTTP(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(t, http.MethodPost, "/v1/jobs", jobCreateBody("plan-01"), h.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	other := fmt.Sprintf("%064d", 1)
	resp, body := h.do(t, http.MethodPost, "/v1/jobs", jobCreateBodyWithHash("plan-01", other), h.token)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "blocked_plan_hash_mismatch", body["reason_code"])
}
