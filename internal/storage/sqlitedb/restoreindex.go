package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

// RestoreIndex reads authoritative partition watermarks from the shared
// snapshot pool. The index is populated out-of-band by the CDC pipeline;
// Upsert exists for seeding and tests.
type RestoreIndex struct {
	db *sql.DB
}

// NewRestoreIndex opens the restore index, creating its table if absent.
func NewRestoreIndex(db *sql.DB) (*RestoreIndex, error) {
	schema := `
CREATE TABLE IF NOT EXISTS rrs_restore_index (
    tenant_id            TEXT NOT NULL,
    instance_id          TEXT NOT NULL,
    source               TEXT NOT NULL,
    topic                TEXT NOT NULL,
    partition_num        INTEGER NOT NULL,
    freshness            TEXT NOT NULL,
    executability        TEXT NOT NULL,
    reason_code          TEXT NOT NULL,
    indexed_through_time TEXT,
    measured_at          TEXT,
    PRIMARY KEY (tenant_id, instance_id, source, topic, partition_num)
)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create rrs_restore_index: %w", err)
	}
	return &RestoreIndex{db: db}, nil
}

// Upsert installs or replaces one watermark row.
func (r *RestoreIndex) Upsert(ctx context.Context, scope models.SourceScope, w models.Watermark) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO rrs_restore_index
    (tenant_id, instance_id, source, topic, partition_num, freshness, executability, reason_code, indexed_through_time, measured_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, instance_id, source, topic, partition_num) DO UPDATE SET
    freshness = excluded.freshness,
    executability = excluded.executability,
    reason_code = excluded.reason_code,
    indexed_through_time = excluded.indexed_through_time,
    measured_at = excluded.measured_at`,
		scope.TenantID, scope.InstanceID, scope.Source,
		w.Topic, w.Partition, w.Freshness, w.Executability, string(w.ReasonCode),
		w.IndexedThroughTime, w.MeasuredAt)
	if err != nil {
		return fmt.Errorf("failed to upsert watermark: %w", err)
	}
	return nil
}

// ReadWatermarksForPartitions returns one watermark per requested partition,
// in request order; unrecorded partitions come back unknown.
func (r *RestoreIndex) ReadWatermarksForPartitions(ctx context.Context, q interfaces.RestoreIndexQuery) ([]models.Watermark, error) {
	out := make([]models.Watermark, 0, len(q.Partitions))
	for _, ref := range q.Partitions {
		var w models.Watermark
		var reason string
		err := r.db.QueryRowContext(ctx, `
SELECT topic, partition_num, freshness, executability, reason_code, indexed_through_time, measured_at
FROM rrs_restore_index
WHERE tenant_id = ? AND instance_id = ? AND source = ? AND topic = ? AND partition_num = ?`,
			q.TenantID, q.InstanceID, q.Source, ref.Topic, ref.Partition,
		).Scan(&w.Topic, &w.Partition, &w.Freshness, &w.Executability, &reason, &w.IndexedThroughTime, &w.MeasuredAt)
		switch {
		case err == sql.ErrNoRows:
			out = append(out, models.UnknownWatermark(ref, q.MeasuredAt))
		case err != nil:
			return nil, fmt.Errorf("failed to read watermark: %w", err)
		default:
			w.ReasonCode = models.ReasonCode(reason)
			out = append(out, w)
		}
	}
	return out, nil
}

// ListWatermarksForSource returns every watermark recorded for the scope,
// sorted by topic then partition.
func (r *RestoreIndex) ListWatermarksForSource(ctx context.Context, q interfaces.RestoreIndexQuery) ([]models.Watermark, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT topic, partition_num, freshness, executability, reason_code, indexed_through_time, measured_at
FROM rrs_restore_index
WHERE tenant_id = ? AND instance_id = ? AND source = ?
ORDER BY topic, partition_num`,
		q.TenantID, q.InstanceID, q.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to list watermarks: %w", err)
	}
	defer rows.Close()

	var out []models.Watermark
	for rows.Next() {
		var w models.Watermark
		var reason string
		if err := rows.Scan(&w.Topic, &w.Partition, &w.Freshness, &w.Executability, &reason, &w.IndexedThroughTime, &w.MeasuredAt); err != nil {
			return nil, fmt.Errorf("failed to scan watermark: %w", err)
		}
		w.ReasonCode = models.ReasonCode(reason)
		out = append(out, w)
	}
	return out, rows.Err()
}
