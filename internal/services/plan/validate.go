package plan

import (
	"fmt"
	"strings"

	"github.com/rezilient/restore-request-service/internal/models"
)

// validateDryRunRequest checks structure only: required identity fields and
// enum membership. Business payloads are not interpreted here. Returns the
// first offending field as a 400 invalid_request.
func validateDryRunRequest(req *models.DryRunPlanRequest) *models.RequestError {
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
	if len(req.LockScopeTables) == 0 {
		return models.BadRequest("lock_scope_tables must not be empty")
	}

	for i, row := range req.Rows {
		if strings.TrimSpace(row.RowID) == "" {
			return models.BadRequest(fmt.Sprintf("rows[%d].row_id is required", i))
		}
		if strings.TrimSpace(row.Table) == "" {
			return models.BadRequest(fmt.Sprintf("rows[%d].table is required", i))
		}
		switch row.Action {
		case models.ActionUpdate, models.ActionInsert, models.ActionDelete, models.ActionSkip:
		default:
			return models.BadRequest(fmt.Sprintf("rows[%d].action %q is not a valid action", i, row.Action))
		}
		if row.Partition != nil && *row.Partition < 0 {
			return models.BadRequest(fmt.Sprintf("rows[%d].partition must be non-negative", i))
		}
	}

	for i, c := range req.Conflicts {
		if strings.TrimSpace(c.ConflictID) == "" {
			return models.BadRequest(fmt.Sprintf("conflicts[%d].conflict_id is required", i))
		}
		if strings.TrimSpace(c.Class) == "" {
			return models.BadRequest(fmt.Sprintf("conflicts[%d].class is required", i))
		}
	}

	for i, dc := range req.DeleteCandidates {
		if strings.TrimSpace(dc.CandidateID) == "" {
			return models.BadRequest(fmt.Sprintf("delete_candidates[%d].candidate_id is required", i))
		}
	}

	for i, mc := range req.MediaCandidates {
		if strings.TrimSpace(mc.CandidateID) == "" {
			return models.BadRequest(fmt.Sprintf("media_candidates[%d].candidate_id is required", i))
		}
		switch mc.Decision {
		case "", models.MediaInclude, models.MediaExclude:
		default:
			return models.BadRequest(fmt.Sprintf("media_candidates[%d].decision %q is not a valid decision", i, mc.Decision))
		}
	}

	for i, h := range req.Watermarks {
		if h.Partition < 0 {
			return models.BadRequest(fmt.Sprintf("watermarks[%d].partition must be non-negative", i))
		}
	}

	for i, pc := range req.PITCandidates {
		if strings.TrimSpace(pc.RowID) == "" {
			return models.BadRequest(fmt.Sprintf("pit_candidates[%d].row_id is required", i))
		}
		for j, v := range pc.Versions {
			if strings.TrimSpace(v.EventID) == "" {
				return models.BadRequest(fmt.Sprintf("pit_candidates[%d].versions[%d].event_id is required", i, j))
			}
		}
	}

	return nil
}
