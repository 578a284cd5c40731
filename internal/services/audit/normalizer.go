// Package audit maps internal job events into the cross-service
// replay-ordered audit form shared with downstream evidence pipelines.
package audit

import (
	"github.com/rezilient/restore-request-service/internal/models"
)

// Normalizer materializes per-job cross-service audit streams.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize joins a job's internal events with its owning scope and plan
// identity, returning the stream sorted by the replay comparator
// (created_at, then event_id).
func (n *Normalizer) Normalize(job *models.JobRecord, events []*models.AuditEvent) []models.CrossServiceAuditEvent {
	out := make([]models.CrossServiceAuditEvent, 0, len(events))
	for _, e := range events {
		out = append(out, models.CrossServiceAuditEvent{
			EventID:    e.EventID,
			EventType:  e.EventType,
			JobID:      e.JobID,
			TenantID:   job.TenantID,
			InstanceID: job.InstanceID,
			Source:     job.Source,
			PlanID:     job.PlanID,
			PlanHash:   job.PlanHash,
			ReasonCode: e.ReasonCode,
			CreatedAt:  e.CreatedAt,
			Details:    e.Details,
		})
	}
	models.SortReplayOrder(out)
	return out
}
