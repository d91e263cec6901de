package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"server/internal/domain"
)

func TestBatchRepository(t *testing.T) {
	r := NewBatchRepository()
	ctx := context.Background()

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:        "b1",
		JobIDs:    []string{"j1", "j2"},
		Status:    domain.BatchStatusPending,
		Progress:  domain.BatchProgress{Total: 2, Pending: 2},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Create(ctx, batch); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, batch); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate create should conflict, got %v", err)
	}
	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing id should be not found, got %v", err)
	}

	got, err := r.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	got.JobIDs[0] = "mutated"
	again, _ := r.GetByID(ctx, "b1")
	if again.JobIDs[0] != "j1" {
		t.Fatalf("repository leaked internal state")
	}

	updated, err := r.UpdateAggregate(ctx, "b1", domain.BatchStatusPartial, domain.BatchProgress{
		Total: 2, Completed: 1, Failed: 1, Percentage: 100,
	})
	if err != nil {
		t.Fatalf("UpdateAggregate: %v", err)
	}
	if updated.Status != domain.BatchStatusPartial || updated.CompletedAt == nil {
		t.Fatalf("terminal aggregate should stamp CompletedAt: %+v", updated)
	}
	stamp := *updated.CompletedAt

	// CompletedAt is set once.
	updated, err = r.UpdateAggregate(ctx, "b1", domain.BatchStatusPartial, updated.Progress)
	if err != nil {
		t.Fatalf("UpdateAggregate: %v", err)
	}
	if !updated.CompletedAt.Equal(stamp) {
		t.Fatalf("CompletedAt moved: %v vs %v", updated.CompletedAt, stamp)
	}
}
