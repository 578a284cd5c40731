package plan

import (
	"sort"
	"strings"

	"github.com/rezilient/restore-request-service/internal/models"
)

// EvaluateGate computes the executability decision for a dry-run plan.
// Checks are ordered; the first match decides the reason code. Resolution
// blockers come before freshness so a caller fixing the plan sees the most
// actionable reason first.
func EvaluateGate(req *models.DryRunPlanRequest, watermarks []models.Watermark) models.GateResult {
	result := models.GateResult{Decision: models.GateExecutable, ReasonCode: models.ReasonNone}

	for _, dc := range req.DeleteCandidates {
		if dc.Decision == "" {
			result.UnresolvedDeleteCandidates++
		}
	}
	for _, c := range req.Conflicts {
		if c.Class == models.ConflictClassReference && c.Resolution == "" {
			result.UnresolvedReferenceConflicts++
		}
	}
	for _, mc := range req.MediaCandidates {
		if mc.Decision == "" {
			result.UnresolvedMediaCandidates++
		}
	}
	for _, w := range watermarks {
		switch {
		case w.Unknown():
			result.UnknownPartitions++
		case w.Stale():
			result.StalePartitions++
		}
	}

	switch {
	case result.UnresolvedDeleteCandidates > 0:
		result.Decision = models.GateBlocked
		result.ReasonCode = models.ReasonBlockedUnresolvedDeleteCands
	case result.UnresolvedReferenceConflicts > 0:
		result.Decision = models.GateBlocked
		result.ReasonCode = models.ReasonBlockedReferenceConflict
	case result.UnresolvedMediaCandidates > 0:
		result.Decision = models.GateBlocked
		result.ReasonCode = models.ReasonBlockedUnresolvedMediaCands
	case result.UnknownPartitions > 0:
		result.Decision = models.GateBlocked
		result.ReasonCode = models.ReasonBlockedFreshnessUnknown
	case result.StalePartitions > 0:
		result.Decision = models.GatePreviewOnly
		result.ReasonCode = models.ReasonBlockedFreshnessStale
	}

	return result
}

// ResolvePIT selects the winning version tuple per candidate. The tie-breaker
// is (sys_updated_on, sys_mod_count, __time, event_id); when either tuple is
// missing sys_mod_count the comparison falls back to
// (sys_updated_on, __time, event_id).
func ResolvePIT(candidates []models.PITCandidate) []models.PITResolution {
	if len(candidates) == 0 {
		return nil
	}

	resolutions := make([]models.PITResolution, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.Versions) == 0 {
			continue
		}
		winner := cand.Versions[0]
		for _, v := range cand.Versions[1:] {
			if laterVersion(v, winner) {
				winner = v
			}
		}
		resolutions = append(resolutions, models.PITResolution{
			RowID:               cand.RowID,
			Table:               cand.Table,
			RecordSysID:         cand.RecordSysID,
			WinningEventID:      winner.EventID,
			WinningSysUpdatedOn: winner.SysUpdatedOn,
			WinningSysModCount:  winner.SysModCount,
			WinningEventTime:    winner.EventTime,
		})
	}

	sort.Slice(resolutions, func(i, j int) bool { return resolutions[i].RowID < resolutions[j].RowID })
	return resolutions
}

// laterVersion reports whether a wins over b.
func laterVersion(a, b models.PITVersion) bool {
	if a.SysUpdatedOn != b.SysUpdatedOn {
		return a.SysUpdatedOn > b.SysUpdatedOn
	}
	if a.SysModCount != nil && b.SysModCount != nil && *a.SysModCount != *b.SysModCount {
		return *a.SysModCount > *b.SysModCount
	}
	if a.EventTime != b.EventTime {
		return a.EventTime > b.EventTime
	}
	return a.EventID > b.EventID
}

// DerivePartitions extracts the unique (topic, partition) pairs from row
// metadata: topic non-empty after trimming, partition present and
// non-negative. Order of first appearance is preserved.
func DerivePartitions(rows []models.PlanRow) []models.PartitionRef {
	seen := make(map[models.PartitionRef]struct{})
	var refs []models.PartitionRef
	for _, row := range rows {
		topic := trimTopic(row.Topic)
		if topic == "" || row.Partition == nil || *row.Partition < 0 {
			continue
		}
		ref := models.PartitionRef{Topic: topic, Partition: *row.Partition}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// HintPartitions extracts the unique (topic, partition) pairs from supplied
// watermark hints.
func HintPartitions(hints []models.WatermarkHint) []models.PartitionRef {
	seen := make(map[models.PartitionRef]struct{})
	var refs []models.PartitionRef
	for _, h := range hints {
		topic := trimTopic(h.Topic)
		if topic == "" || h.Partition < 0 {
			continue
		}
		ref := models.PartitionRef{Topic: topic, Partition: h.Partition}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// RowTopics returns the unique trimmed topics present on rows, regardless of
// whether a partition accompanies them.
func RowTopics(rows []models.PlanRow) map[string]struct{} {
	topics := make(map[string]struct{})
	for _, row := range rows {
		if topic := trimTopic(row.Topic); topic != "" {
			topics[topic] = struct{}{}
		}
	}
	return topics
}

// HintTopics returns the unique trimmed topics present on watermark hints.
func HintTopics(hints []models.WatermarkHint) map[string]struct{} {
	topics := make(map[string]struct{})
	for _, h := range hints {
		if topic := trimTopic(h.Topic); topic != "" {
			topics[topic] = struct{}{}
		}
	}
	return topics
}

func trimTopic(topic string) string {
	return strings.TrimSpace(topic)
}
