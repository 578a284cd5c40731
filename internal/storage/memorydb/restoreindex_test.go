package memorydb

import (
	"context"
	"testing"

	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

func indexScope() models.SourceScope {
	return models.SourceScope{TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev"}
}

func TestReadWatermarksMissingPartitionsAreUnknown(t *testing.T) {
	index := NewRestoreIndex()
	index.Upsert(indexScope(), models.Watermark{Topic: "rez.cdc", Partition: 1, Freshness: models.FreshnessFresh, Executability: models.ExecutabilityExecutable, ReasonCode: models.ReasonNone})

	got, err := index.ReadWatermarksForPartitions(context.Background(), interfaces.RestoreIndexQuery{
		TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev",
		Partitions: []models.PartitionRef{
			{Topic: "rez.cdc", Partition: 1},
			{Topic: "rez.cdc", Partition: 9},
		},
		MeasuredAt: "2026-01-01T00:00:00.000Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected one watermark per requested partition, got %d", len(got))
	}
	if got[0].Freshness != models.FreshnessFresh {
		t.Fatalf("recorded partition must come back as stored: %+v", got[0])
	}
	if got[1].Freshness != models.FreshnessUnknown || got[1].ReasonCode != models.ReasonBlockedFreshnessUnknown {
		t.Fatalf("missing partition must fail closed: %+v", got[1])
	}
	if got[1].MeasuredAt != "2026-01-01T00:00:00.000Z" {
		t.Fatalf("unknown watermark must carry the query's measured_at: %+v", got[1])
	}
}

func TestListWatermarksIsScopedAndSorted(t *testing.T) {
	index := NewRestoreIndex()
	index.Upsert(indexScope(), models.Watermark{Topic: "rez.cdc", Partition: 2, Freshness: models.FreshnessFresh})
	index.Upsert(indexScope(), models.Watermark{Topic: "rez.cdc", Partition: 0, Freshness: models.FreshnessStale})
	index.Upsert(indexScope(), models.Watermark{Topic: "rez.audit", Partition: 5, Freshness: models.FreshnessFresh})
	index.Upsert(models.SourceScope{TenantID: "beta", InstanceID: "prod", Source: "sn://beta-prod"},
		models.Watermark{Topic: "rez.cdc", Partition: 7, Freshness: models.FreshnessFresh})

	got, err := index.ListWatermarksForSource(context.Background(), interfaces.RestoreIndexQuery{
		TenantID: "acme", InstanceID: "dev", Source: "sn://acme-dev",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 watermarks for the scope, got %d", len(got))
	}
	if got[0].Topic != "rez.audit" || got[1].Partition != 0 || got[2].Partition != 2 {
		t.Fatalf("expected (topic, partition) order, got %+v", got)
	}
}
