package memorydb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

// RestoreIndex is an upsertable in-memory watermark index. Production runs
// use the sqlite-backed form; this one serves tests and seeded deployments.
type RestoreIndex struct {
	mu         sync.Mutex
	watermarks map[string]models.Watermark
}

// NewRestoreIndex returns an empty in-memory restore index.
func NewRestoreIndex() *RestoreIndex {
	return &RestoreIndex{watermarks: make(map[string]models.Watermark)}
}

// Upsert installs or replaces the watermark for one (scope, topic, partition).
func (r *RestoreIndex) Upsert(scope models.SourceScope, w models.Watermark) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watermarks[indexKey(scope, w.Topic, w.Partition)] = w
}

// ReadWatermarksForPartitions returns one watermark per requested partition,
// in request order. Partitions the index has no record of come back with
// freshness "unknown".
func (r *RestoreIndex) ReadWatermarksForPartitions(ctx context.Context, q interfaces.RestoreIndexQuery) ([]models.Watermark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope := models.SourceScope{TenantID: q.TenantID, InstanceID: q.InstanceID, Source: q.Source}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Watermark, 0, len(q.Partitions))
	for _, ref := range q.Partitions {
		if w, ok := r.watermarks[indexKey(scope, ref.Topic, ref.Partition)]; ok {
			out = append(out, w)
			continue
		}
		out = append(out, models.UnknownWatermark(ref, q.MeasuredAt))
	}
	return out, nil
}

// ListWatermarksForSource returns every watermark recorded for the scope,
// sorted by topic then partition.
func (r *RestoreIndex) ListWatermarksForSource(ctx context.Context, q interfaces.RestoreIndexQuery) ([]models.Watermark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope := models.SourceScope{TenantID: q.TenantID, InstanceID: q.InstanceID, Source: q.Source}
	prefix := scopeKey(scope)

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Watermark
	for key, w := range r.watermarks {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Partition < out[j].Partition
	})
	return out, nil
}

func scopeKey(scope models.SourceScope) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00", scope.TenantID, scope.InstanceID, scope.Source)
}

func indexKey(scope models.SourceScope, topic string, partition int) string {
	return fmt.Sprintf("%s%s\x00%d", scopeKey(scope), topic, partition)
}
