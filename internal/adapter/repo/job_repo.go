package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"server/internal/domain"
)

// JobRepositoryMem implements domain.JobRepository on a process-local map.
// Records live as long as the process does.
type JobRepositoryMem struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobRepository creates an empty in-memory job repository.
func NewJobRepository() *JobRepositoryMem {
	return &JobRepositoryMem{jobs: make(map[string]*domain.Job)}
}

// Create inserts a new job record. Duplicate ids are rejected.
func (r *JobRepositoryMem) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists: %w", job.ID, domain.ErrConflict)
	}
	stored := cloneJob(job)
	r.jobs[job.ID] = stored
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryMem) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	return cloneJob(job), nil
}

// Update merges the non-nil fields of update into the stored job and bumps
// UpdatedAt. The merged record is returned.
func (r *JobRepositoryMem) Update(ctx context.Context, jobID string, update domain.JobUpdate) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	if update.ExpectStatus != nil && job.Status != *update.ExpectStatus {
		return nil, fmt.Errorf("job %s is %s, expected %s: %w", jobID, job.Status, *update.ExpectStatus, domain.ErrConflict)
	}
	// Terminal states are final. A write that arrives after the job has
	// settled, typically a poll or cancel that raced the settling update,
	// must not move the status again.
	if update.Status != nil && job.Status.Terminal() && *update.Status != job.Status {
		return nil, fmt.Errorf("job %s is already %s: %w", jobID, job.Status, domain.ErrConflict)
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.ProviderJobID != nil {
		job.ProviderJobID = *update.ProviderJobID
	}
	if update.Result != nil {
		result := *update.Result
		job.Result = &result
	}
	if update.Error != nil {
		jobErr := *update.Error
		job.Error = &jobErr
	}
	if update.StartedAt != nil && job.StartedAt == nil {
		startedAt := *update.StartedAt
		job.StartedAt = &startedAt
	}
	if update.CompletedAt != nil && job.CompletedAt == nil {
		completedAt := *update.CompletedAt
		job.CompletedAt = &completedAt
	}
	job.UpdatedAt = time.Now().UTC()
	return cloneJob(job), nil
}

// List returns one page of jobs matching the filter plus the total match
// count for pagination metadata.
func (r *JobRepositoryMem) List(ctx context.Context, filter domain.JobFilter, page domain.JobPage) ([]*domain.Job, int, error) {
	page = page.Normalize()

	r.mu.RLock()
	matched := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && job.Priority != filter.Priority {
			continue
		}
		matched = append(matched, cloneJob(job))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		switch page.Sort {
		case domain.JobSortUpdatedAt:
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		default:
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
	})

	total := len(matched)
	start := (page.Page - 1) * page.Limit
	if start >= total {
		return []*domain.Job{}, total, nil
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Delete removes a job and reports whether a record was actually deleted.
func (r *JobRepositoryMem) Delete(ctx context.Context, jobID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; !ok {
		return false, nil
	}
	delete(r.jobs, jobID)
	return true, nil
}

func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	if job.Seed != nil {
		seed := *job.Seed
		clone.Seed = &seed
	}
	if job.Result != nil {
		result := *job.Result
		clone.Result = &result
	}
	if job.Error != nil {
		jobErr := *job.Error
		clone.Error = &jobErr
	}
	if job.StartedAt != nil {
		startedAt := *job.StartedAt
		clone.StartedAt = &startedAt
	}
	if job.CompletedAt != nil {
		completedAt := *job.CompletedAt
		clone.CompletedAt = &completedAt
	}
	if job.Metadata != nil {
		clone.Metadata = make(map[string]string, len(job.Metadata))
		for k, v := range job.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

var _ domain.JobRepository = (*JobRepositoryMem)(nil)
