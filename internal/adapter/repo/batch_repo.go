package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"server/internal/domain"
)

// BatchRepositoryMem implements domain.BatchRepository on a process-local map.
type BatchRepositoryMem struct {
	mu      sync.RWMutex
	batches map[string]*domain.Batch
}

// NewBatchRepository creates an empty in-memory batch repository.
func NewBatchRepository() *BatchRepositoryMem {
	return &BatchRepositoryMem{batches: make(map[string]*domain.Batch)}
}

// Create inserts a new batch record.
func (r *BatchRepositoryMem) Create(ctx context.Context, batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batches[batch.ID]; exists {
		return fmt.Errorf("batch %s already exists: %w", batch.ID, domain.ErrConflict)
	}
	r.batches[batch.ID] = cloneBatch(batch)
	return nil
}

// GetByID fetches a batch by its identifier.
func (r *BatchRepositoryMem) GetByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	batch, ok := r.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}
	return cloneBatch(batch), nil
}

// UpdateAggregate stores a freshly derived status and progress. CompletedAt
// is stamped the first time the batch goes terminal.
func (r *BatchRepositoryMem) UpdateAggregate(ctx context.Context, batchID string, status domain.BatchStatus, progress domain.BatchProgress) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	batch.Status = status
	batch.Progress = progress
	batch.UpdatedAt = now
	if status.Terminal() && batch.CompletedAt == nil {
		batch.CompletedAt = &now
	}
	return cloneBatch(batch), nil
}

func cloneBatch(batch *domain.Batch) *domain.Batch {
	clone := *batch
	clone.JobIDs = append([]string(nil), batch.JobIDs...)
	if batch.CompletedAt != nil {
		completedAt := *batch.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}

var _ domain.BatchRepository = (*BatchRepositoryMem)(nil)
