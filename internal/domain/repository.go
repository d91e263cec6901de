package domain

import "context"

// JobRepository defines persistence for job entities. The in-memory adapter
// is the only implementation today; the contract is kept narrow so a durable
// store can be substituted without touching orchestration logic.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	Update(ctx context.Context, jobID string, update JobUpdate) (*Job, error)
	List(ctx context.Context, filter JobFilter, page JobPage) ([]*Job, int, error)
	Delete(ctx context.Context, jobID string) (bool, error)
}

// BatchRepository defines persistence for batch entities.
type BatchRepository interface {
	Create(ctx context.Context, batch *Batch) error
	GetByID(ctx context.Context, batchID string) (*Batch, error)
	UpdateAggregate(ctx context.Context, batchID string, status BatchStatus, progress BatchProgress) (*Batch, error)
}
