package scopelock

import (
	"testing"

	"github.com/rezilient/restore-request-service/internal/models"
)

func TestAcquireDisjointScopesRun(t *testing.T) {
	m := New()

	d1 := m.Acquire("job-1", "acme", "dev", []string{"incident"})
	if d1.State != StateRunning {
		t.Fatalf("expected running, got %s", d1.State)
	}
	if d1.QueuePosition != nil {
		t.Fatalf("running decision must not carry a queue position")
	}

	d2 := m.Acquire("job-2", "acme", "dev", []string{"change_request"})
	if d2.State != StateRunning {
		t.Fatalf("expected running for disjoint tables, got %s", d2.State)
	}
}

func TestAcquireOverlapQueuesFIFO(t *testing.T) {
	m := New()

	m.Acquire("job-1", "acme", "dev", []string{"incident"})
	d2 := m.Acquire("job-2", "acme", "dev", []string{"incident", "task"})
	d3 := m.Acquire("job-3", "acme", "dev", []string{"incident"})

	if d2.State != StateQueued || d3.State != StateQueued {
		t.Fatalf("expected both overlapping jobs queued, got %s / %s", d2.State, d3.State)
	}
	if *d2.QueuePosition != 1 || *d3.QueuePosition != 2 {
		t.Fatalf("expected positions 1 and 2, got %d and %d", *d2.QueuePosition, *d3.QueuePosition)
	}
	if d2.ReasonCode != models.ReasonQueuedScopeLock {
		t.Fatalf("expected queued_scope_lock, got %s", d2.ReasonCode)
	}
	if len(d2.BlockedTables) != 1 || d2.BlockedTables[0] != "incident" {
		t.Fatalf("expected blocked_tables [incident], got %v", d2.BlockedTables)
	}
}

func TestFairnessRuleNoQueueJumping(t *testing.T) {
	m := New()

	// job-1 runs on incident; job-2 waits on incident+task.
	m.Acquire("job-1", "acme", "dev", []string{"incident"})
	m.Acquire("job-2", "acme", "dev", []string{"incident", "task"})

	// job-3 touches only task, which no running job holds — but job-2 is
	// queued on it, so job-3 must queue behind job-2.
	d3 := m.Acquire("job-3", "beta", "prod", []string{"task"})
	if d3.State != StateQueued {
		t.Fatalf("expected queued behind waiting job, got %s", d3.State)
	}
	if len(d3.BlockedTables) != 1 || d3.BlockedTables[0] != "task" {
		t.Fatalf("expected blocked_tables [task], got %v", d3.BlockedTables)
	}
}

func TestReleasePromotesFIFOHead(t *testing.T) {
	m := New()

	m.Acquire("job-a", "acme", "dev", []string{"incident"})
	m.Acquire("job-b", "acme", "dev", []string{"incident"})
	m.Acquire("job-c", "beta", "dev", []string{"incident"})

	res := m.Release("job-a")
	if len(res.Released) != 1 || res.Released[0] != "incident" {
		t.Fatalf("expected released [incident], got %v", res.Released)
	}
	if len(res.Promoted) != 1 || res.Promoted[0].JobID != "job-b" {
		t.Fatalf("expected job-b promoted, got %v", res.Promoted)
	}
	if res.Promoted[0].ReasonCode != models.ReasonNone {
		t.Fatalf("promotion reason must be none, got %s", res.Promoted[0].ReasonCode)
	}

	// job-c still queued behind job-b.
	if m.QueuePosition("job-c") != 1 {
		t.Fatalf("expected job-c at queue head, got position %d", m.QueuePosition("job-c"))
	}

	res = m.Release("job-b")
	if len(res.Promoted) != 1 || res.Promoted[0].JobID != "job-c" {
		t.Fatalf("expected job-c promoted, got %v", res.Promoted)
	}
}

func TestReleasePromotesMultipleDisjointWaiters(t *testing.T) {
	m := New()

	m.Acquire("job-a", "acme", "dev", []string{"incident", "task"})
	m.Acquire("job-b", "acme", "dev", []string{"incident"})
	m.Acquire("job-c", "acme", "dev", []string{"task"})

	res := m.Release("job-a")
	if len(res.Promoted) != 2 {
		t.Fatalf("expected two promotions, got %v", res.Promoted)
	}
	if res.Promoted[0].JobID != "job-b" || res.Promoted[1].JobID != "job-c" {
		t.Fatalf("promotions must preserve FIFO order, got %v", res.Promoted)
	}

	snap := m.Snapshot()
	if len(snap.Running) != 2 || len(snap.Queued) != 0 {
		t.Fatalf("expected 2 running / 0 queued, got %d / %d", len(snap.Running), len(snap.Queued))
	}
}

func TestPromotionRespectsEarlierQueuedClaims(t *testing.T) {
	m := New()

	m.Acquire("job-a", "acme", "dev", []string{"incident"})
	m.Acquire("job-d", "acme", "dev", []string{"problem"})
	m.Acquire("job-b", "acme", "dev", []string{"incident", "problem"})
	m.Acquire("job-c", "acme", "dev", []string{"incident"})

	// Releasing job-a frees incident, but job-b still overlaps running
	// job-d on problem. job-c overlaps job-b's queued claim on incident,
	// so nothing promotes.
	res := m.Release("job-a")
	if len(res.Promoted) != 0 {
		t.Fatalf("expected no promotions, got %v", res.Promoted)
	}

	res = m.Release("job-d")
	if len(res.Promoted) != 1 || res.Promoted[0].JobID != "job-b" {
		t.Fatalf("expected job-b promoted after problem freed, got %v", res.Promoted)
	}
}

func TestDequeueRemovesWithoutPromotion(t *testing.T) {
	m := New()

	m.Acquire("job-a", "acme", "dev", []string{"incident"})
	m.Acquire("job-b", "acme", "dev", []string{"incident"})
	m.Acquire("job-c", "acme", "dev", []string{"incident"})

	if !m.Dequeue("job-b") {
		t.Fatal("expected dequeue of queued job to succeed")
	}
	if m.Dequeue("job-a") {
		t.Fatal("dequeue must not remove a running job")
	}

	snap := m.Snapshot()
	if len(snap.Running) != 1 || len(snap.Queued) != 1 {
		t.Fatalf("expected 1 running / 1 queued, got %d / %d", len(snap.Running), len(snap.Queued))
	}
	if snap.Queued[0].JobID != "job-c" {
		t.Fatalf("expected job-c to remain queued, got %s", snap.Queued[0].JobID)
	}
}

func TestExportLoadPreservesQueueOrder(t *testing.T) {
	m := New()

	m.Acquire("job-a", "acme", "dev", []string{"incident"})
	m.Acquire("job-b", "acme", "dev", []string{"incident"})
	m.Acquire("job-c", "beta", "prod", []string{"incident"})

	restored := Load(m.Export())

	snap := restored.Snapshot()
	if len(snap.Queued) != 2 || snap.Queued[0].JobID != "job-b" || snap.Queued[1].JobID != "job-c" {
		t.Fatalf("restored queue order wrong: %v", snap.Queued)
	}

	// The restored manager's next release observes the restored order.
	res := restored.Release("job-a")
	if len(res.Promoted) != 1 || res.Promoted[0].JobID != "job-b" {
		t.Fatalf("expected job-b promoted after restore, got %v", res.Promoted)
	}
}

func TestRunningTablesStayDisjoint(t *testing.T) {
	m := New()

	m.Acquire("job-a", "acme", "dev", []string{"incident", "task"})
	m.Acquire("job-b", "acme", "dev", []string{"task", "problem"})
	m.Acquire("job-c", "acme", "dev", []string{"problem"})
	m.Release("job-a")
	m.Release("job-b")

	snap := m.Snapshot()
	held := make(map[string]string)
	for _, e := range snap.Running {
		for _, table := range e.Tables {
			if owner, ok := held[table]; ok {
				t.Fatalf("table %s held by both %s and %s", table, owner, e.JobID)
			}
			held[table] = e.JobID
		}
	}
}

func TestNormalizeTables(t *testing.T) {
	got := NormalizeTables([]string{" incident ", "task", "incident", "", "alpha"})
	want := []string{"alpha", "incident", "task"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
