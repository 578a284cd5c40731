package memorydb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rezilient/restore-request-service/internal/models"
)

func TestReadReturnsDetachedClone(t *testing.T) {
	store := NewJobStateStore()
	ctx := context.Background()

	_, err := store.Mutate(ctx, func(state *models.JobState) error {
		state.Jobs["job_1"] = &models.JobRecord{JobID: "job_1", Status: models.JobStatusRunning, CreatedAt: time.Now().UTC()}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first.Jobs["job_1"].Status = models.JobStatusFailed

	second, err := store.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second.Jobs["job_1"].Status != models.JobStatusRunning {
		t.Fatal("mutating a read clone must not affect the committed state")
	}
}

func TestMutateIncrementsVersion(t *testing.T) {
	store := NewPlanStateStore()
	ctx := context.Background()

	v, err := store.Version(ctx)
	if err != nil || v != 0 {
		t.Fatalf("expected version 0, got %d (%v)", v, err)
	}

	for i := 1; i <= 3; i++ {
		_, err := store.Mutate(ctx, func(state *models.PlanState) error { return nil })
		if err != nil {
			t.Fatal(err)
		}
	}

	v, err = store.Version(ctx)
	if err != nil || v != 3 {
		t.Fatalf("expected version 3, got %d (%v)", v, err)
	}
}

func TestMutatorErrorLeavesStateUntouched(t *testing.T) {
	store := NewJobStateStore()
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := store.Mutate(ctx, func(state *models.JobState) error {
		state.Jobs["job_x"] = &models.JobRecord{JobID: "job_x"}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}

	state, err := store.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Jobs) != 0 {
		t.Fatal("failed mutate must not commit")
	}

	if v, _ := store.Version(ctx); v != 0 {
		t.Fatalf("failed mutate must not bump version, got %d", v)
	}
}

func TestMutateReturnsDetachedState(t *testing.T) {
	store := NewJobStateStore()
	ctx := context.Background()

	returned, err := store.Mutate(ctx, func(state *models.JobState) error {
		state.Jobs["job_1"] = &models.JobRecord{JobID: "job_1", Status: models.JobStatusQueued}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	returned.Jobs["job_1"].Status = models.JobStatusCancelled

	state, err := store.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Jobs["job_1"].Status != models.JobStatusQueued {
		t.Fatal("mutating the returned state must not affect the committed state")
	}
}
