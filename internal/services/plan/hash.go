package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/rezilient/restore-request-service/internal/models"
)

// BuildPlanHashInput assembles the canonical hash input from a dry-run
// request: rows sorted by row_id, media candidates sorted by candidate_id,
// and the versioning constants pinned.
func BuildPlanHashInput(req *models.DryRunPlanRequest, counts models.ActionCounts) models.PlanHashInput {
	rows := make([]models.PlanRow, len(req.Rows))
	copy(rows, req.Rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].RowID < rows[j].RowID })

	media := make([]models.MediaCandidate, len(req.MediaCandidates))
	copy(media, req.MediaCandidates)
	sort.Slice(media, func(i, j int) bool { return media[i].CandidateID < media[j].CandidateID })

	return models.PlanHashInput{
		ContractVersion:          models.PlanContractVersion,
		PlanHashInputVersion:     models.PlanHashInputVersion,
		PlanHashAlgorithm:        models.PlanHashAlgorithm,
		PIT:                      req.PIT,
		Scope:                    req.Scope,
		ExecutionOptions:         req.ExecutionOptions,
		ActionCounts:             counts,
		Rows:                     rows,
		MediaCandidates:          media,
		MetadataAllowlistVersion: models.MetadataAllowlistVersion,
	}
}

// ComputePlanHash returns the lowercase hex SHA-256 of the canonical JSON
// serialization of the hash input.
func ComputePlanHash(input models.PlanHashInput) (string, error) {
	canonical, err := CanonicalJSON(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CountActions scans the request's rows, conflicts, and media decisions into
// the action-count summary that enters the hash input.
func CountActions(req *models.DryRunPlanRequest) models.ActionCounts {
	counts := models.ActionCounts{Conflict: len(req.Conflicts)}
	for _, row := range req.Rows {
		switch row.Action {
		case models.ActionUpdate:
			counts.Update++
		case models.ActionInsert:
			counts.Insert++
		case models.ActionDelete:
			counts.Delete++
		case models.ActionSkip:
			counts.Skip++
		}
	}
	for _, mc := range req.MediaCandidates {
		switch mc.Decision {
		case models.MediaInclude:
			counts.AttachmentApply++
		case models.MediaExclude:
			counts.AttachmentSkip++
		}
	}
	return counts
}
