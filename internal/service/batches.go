package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"server/internal/domain"
	"server/internal/infra"
)

const (
	// Batch size bounds. Fixed at creation.
	minBatchVideos = 1
	maxBatchVideos = 10

	defaultBatchConcurrency = 5
	defaultPollInterval     = 2 * time.Second
	defaultJobTimeout       = 10 * time.Minute
)

// CreateBatchInput groups the video specs submitted together.
type CreateBatchInput struct {
	Videos []CreateVideoInput
}

// BatchOptions tunes batch processing.
type BatchOptions struct {
	// Concurrency bounds how many jobs have outstanding provider calls
	// at once, regardless of batch size.
	Concurrency int
	// PollInterval is the delay between status syncs per job.
	PollInterval time.Duration
	// JobTimeout caps how long a single job is driven before the batch
	// stops waiting for it.
	JobTimeout time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = defaultBatchConcurrency
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = defaultJobTimeout
	}
	return o
}

// BatchService fans a group of video requests out through the job service,
// bounds their concurrency and aggregates their outcomes.
type BatchService struct {
	batches domain.BatchRepository
	jobSvc  *JobService
	logger  infra.Logger
	metrics *infra.Metrics
	opts    BatchOptions

	processing sync.WaitGroup
}

// NewBatchService wires the batch orchestrator with explicit dependencies.
func NewBatchService(batches domain.BatchRepository, jobSvc *JobService, logger infra.Logger, metrics *infra.Metrics, opts BatchOptions) *BatchService {
	return &BatchService{
		batches: batches,
		jobSvc:  jobSvc,
		logger:  logger,
		metrics: metrics,
		opts:    opts.withDefaults(),
	}
}

// CreateBatch validates every video spec, creates one job per spec and
// persists a batch referencing them. Processing starts in the background;
// the batch is returned immediately in pending state.
func (s *BatchService) CreateBatch(ctx context.Context, input CreateBatchInput) (*domain.Batch, error) {
	if len(input.Videos) < minBatchVideos || len(input.Videos) > maxBatchVideos {
		return nil, domain.NewValidationError("videos",
			fmt.Sprintf("A batch must contain between %d and %d videos", minBatchVideos, maxBatchVideos))
	}
	// Validate everything up front so a bad spec in the middle never
	// leaves a half-created batch behind.
	for i, video := range input.Videos {
		if err := s.jobSvc.ValidateRequest(video); err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				return nil, domain.NewValidationError(fmt.Sprintf("videos[%d].%s", i, vErr.Field), vErr.Message)
			}
			return nil, err
		}
	}

	// Jobs are created unsubmitted; the worker pool below owns submission
	// so the concurrency bound covers the provider calls too.
	jobIDs := make([]string, 0, len(input.Videos))
	for _, video := range input.Videos {
		job, err := s.jobSvc.createJob(ctx, video)
		if err != nil {
			return nil, err
		}
		jobIDs = append(jobIDs, job.ID)
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:     uuid.NewString(),
		JobIDs: jobIDs,
		Status: domain.BatchStatusPending,
		Progress: domain.BatchProgress{
			Total:   len(jobIDs),
			Pending: len(jobIDs),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	s.metrics.BatchesCreated.Inc()
	s.logger.Info().
		Str("batch_id", batch.ID).
		Int("jobs", len(jobIDs)).
		Msg("batch created")

	s.processing.Add(1)
	go func() {
		defer s.processing.Done()
		s.ProcessBatch(context.Background(), batch.ID)
	}()
	return batch, nil
}

// WaitForProcessing blocks until background batch processing has settled.
// Used during graceful shutdown and by tests.
func (s *BatchService) WaitForProcessing() {
	s.processing.Wait()
}

// ProcessBatch drives every constituent job to a terminal state through a
// bounded worker pool. One job failing never aborts its siblings; the batch
// aggregate is refreshed after every observed transition.
func (s *BatchService) ProcessBatch(ctx context.Context, batchID string) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("cannot process unknown batch")
		return
	}

	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))
	var wg sync.WaitGroup
	for _, jobID := range batch.JobIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			s.logger.Warn().Err(err).Str("batch_id", batchID).Msg("batch processing interrupted")
			break
		}
		wg.Add(1)
		go func(jobID string) {
			defer wg.Done()
			defer sem.Release(1)
			s.driveJob(ctx, batchID, jobID)
		}(jobID)
	}
	wg.Wait()

	batch = s.refreshAggregate(ctx, batchID)
	if batch != nil && batch.Status.Terminal() {
		s.metrics.BatchesDone.WithLabelValues(string(batch.Status)).Inc()
		s.logger.Info().
			Str("batch_id", batchID).
			Str("status", string(batch.Status)).
			Int("completed", batch.Progress.Completed).
			Int("failed", batch.Progress.Failed).
			Msg("batch finished")
	}
}

// driveJob submits one job if it has not been handed to the provider yet,
// then polls it until it settles or its time budget runs out.
func (s *BatchService) driveJob(ctx context.Context, batchID, jobID string) {
	job, err := s.jobSvc.jobs.GetByID(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("batch_id", batchID).
			Str("job_id", jobID).
			Msg("batch job missing before submission")
		return
	}
	if job.Status == domain.JobStatusPending && job.ProviderJobID == "" {
		s.jobSvc.submitJob(ctx, job)
		s.refreshAggregate(ctx, batchID)
	}

	deadline := time.Now().Add(s.opts.JobTimeout)
	lastStatus := domain.JobStatus("")
	for {
		job, err := s.jobSvc.SyncJobStatus(ctx, jobID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("batch_id", batchID).
				Str("job_id", jobID).
				Msg("batch job sync failed")
			return
		}
		if job.Status != lastStatus {
			lastStatus = job.Status
			s.refreshAggregate(ctx, batchID)
		}
		if job.Status.Terminal() {
			return
		}
		if time.Now().After(deadline) {
			s.logger.Warn().
				Str("batch_id", batchID).
				Str("job_id", jobID).
				Str("status", string(job.Status)).
				Msg("batch stopped waiting for slow job")
			return
		}
		select {
		case <-time.After(s.opts.PollInterval):
		case <-ctx.Done():
			return
		}
	}
}

// GetBatchStatus returns the batch with a freshly derived aggregate.
func (s *BatchService) GetBatchStatus(ctx context.Context, batchID string) (*domain.Batch, error) {
	if _, err := s.batches.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	if batch := s.refreshAggregate(ctx, batchID); batch != nil {
		return batch, nil
	}
	return s.batches.GetByID(ctx, batchID)
}

// CancelBatch cancels every non-terminal constituent job, best effort per
// job. The batch settles into its terminal aggregate once all jobs have.
func (s *BatchService) CancelBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status.Terminal() {
		return nil, domain.NewConflictError(fmt.Sprintf("batch is already %s", batch.Status))
	}
	for _, jobID := range batch.JobIDs {
		if _, err := s.jobSvc.CancelJob(ctx, jobID); err != nil {
			// Jobs that already settled are fine; anything else is
			// logged and skipped so siblings still get cancelled.
			if !errors.Is(err, domain.ErrConflict) {
				s.logger.Warn().Err(err).
					Str("batch_id", batchID).
					Str("job_id", jobID).
					Msg("batch job cancel failed")
			}
		}
	}
	if refreshed := s.refreshAggregate(ctx, batchID); refreshed != nil {
		return refreshed, nil
	}
	return s.batches.GetByID(ctx, batchID)
}

// refreshAggregate recomputes the batch status and progress from the current
// job statuses and persists the result. Returns nil when the batch or one of
// its jobs cannot be read.
func (s *BatchService) refreshAggregate(ctx context.Context, batchID string) *domain.Batch {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("aggregate refresh: batch missing")
		return nil
	}
	statuses := make([]domain.JobStatus, 0, len(batch.JobIDs))
	for _, jobID := range batch.JobIDs {
		job, err := s.jobSvc.jobs.GetByID(ctx, jobID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("batch_id", batchID).
				Str("job_id", jobID).
				Msg("aggregate refresh: job missing")
			return nil
		}
		statuses = append(statuses, job.Status)
	}
	status, progress := domain.AggregateBatch(statuses)
	if status == batch.Status && progress == batch.Progress {
		return batch
	}
	updated, err := s.batches.UpdateAggregate(ctx, batchID, status, progress)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("aggregate refresh: update failed")
		return nil
	}
	return updated
}
