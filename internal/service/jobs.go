package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/videogen"
)

// CreateVideoInput is the caller-facing shape of a generation request.
type CreateVideoInput struct {
	Prompt      string
	Duration    *int
	Resolution  string
	AspectRatio string
	Style       string
	Seed        *int
	Priority    domain.JobPriority
	Metadata    map[string]string
}

// JobService drives the job lifecycle: validation, persistence, asynchronous
// submission to the provider, status synchronization and cancellation.
type JobService struct {
	jobs     domain.JobRepository
	provider videogen.Provider
	logger   infra.Logger
	metrics  *infra.Metrics

	submissions sync.WaitGroup
}

// NewJobService wires the orchestrator with its explicit dependencies.
func NewJobService(jobs domain.JobRepository, provider videogen.Provider, logger infra.Logger, metrics *infra.Metrics) *JobService {
	return &JobService{
		jobs:     jobs,
		provider: provider,
		logger:   logger,
		metrics:  metrics,
	}
}

// CreateVideo validates the request, persists a pending job and returns it
// immediately. Submission to the provider happens in the background; its
// outcome is observable only through the job record.
func (s *JobService) CreateVideo(ctx context.Context, input CreateVideoInput) (*domain.Job, error) {
	job, err := s.createJob(ctx, input)
	if err != nil {
		return nil, err
	}
	s.submissions.Add(1)
	go func() {
		defer s.submissions.Done()
		// Detached from the caller's context: the HTTP request is long
		// gone by the time the provider answers.
		s.submitJob(context.Background(), job)
	}()
	return job, nil
}

// createJob validates and persists a pending job without submitting it. The
// batch orchestrator uses this directly so submission can be deferred into
// its worker pool.
func (s *JobService) createJob(ctx context.Context, input CreateVideoInput) (*domain.Job, error) {
	if err := s.ValidateRequest(input); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.JobPriorityNormal
	}
	duration := 0
	if input.Duration != nil {
		duration = *input.Duration
	}
	now := time.Now().UTC()
	job := &domain.Job{
		ID:          uuid.NewString(),
		Status:      domain.JobStatusPending,
		Priority:    priority,
		Prompt:      strings.TrimSpace(input.Prompt),
		Duration:    duration,
		Resolution:  input.Resolution,
		AspectRatio: input.AspectRatio,
		Style:       input.Style,
		Seed:        input.Seed,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	s.metrics.JobsCreated.Inc()
	s.logger.Info().
		Str("job_id", job.ID).
		Str("priority", string(job.Priority)).
		Msg("job created")
	return job, nil
}

// WaitForSubmissions blocks until every background submission has settled.
// Used during graceful shutdown and by tests.
func (s *JobService) WaitForSubmissions() {
	s.submissions.Wait()
}

// submitJob performs the provider submission for a pending job and records
// the outcome. Safe to call from any goroutine; a job that left pending in
// the meantime has its result discarded.
func (s *JobService) submitJob(ctx context.Context, job *domain.Job) {
	jobID := job.ID
	handle, err := s.provider.CreateVideo(ctx, videogen.GenerateRequest{
		Prompt:      job.Prompt,
		Duration:    job.Duration,
		Resolution:  job.Resolution,
		AspectRatio: job.AspectRatio,
		Style:       job.Style,
		Seed:        job.Seed,
		RequestID:   job.ID,
	})
	if err != nil {
		s.markSubmissionFailed(ctx, jobID, err)
		return
	}

	expect := domain.JobStatusPending
	status := domain.JobStatusProcessing
	now := time.Now().UTC()
	_, updateErr := s.jobs.Update(ctx, jobID, domain.JobUpdate{
		ExpectStatus:  &expect,
		Status:        &status,
		ProviderJobID: &handle.ID,
		StartedAt:     &now,
	})
	switch {
	case updateErr == nil:
		s.logger.Info().
			Str("job_id", jobID).
			Str("provider_job_id", handle.ID).
			Str("provider_status", string(handle.Status)).
			Msg("job submitted to provider")
	case errors.Is(updateErr, domain.ErrConflict):
		// The job left pending while we were submitting, typically via
		// cancellation. Drop the stale result.
		s.logger.Warn().
			Str("job_id", jobID).
			Str("provider_job_id", handle.ID).
			Msg("discarding stale submission result")
	default:
		s.logger.Error().Err(updateErr).Str("job_id", jobID).Msg("failed to record submission")
	}
}

func (s *JobService) markSubmissionFailed(ctx context.Context, jobID string, cause error) {
	expect := domain.JobStatusPending
	status := domain.JobStatusFailed
	now := time.Now().UTC()
	jobErr := &domain.JobError{
		Code:      "submission_failed",
		Message:   cause.Error(),
		Timestamp: now,
	}
	var apiErr *videogen.APIError
	if errors.As(cause, &apiErr) && apiErr.Code != "" {
		jobErr.Code = apiErr.Code
	}
	_, updateErr := s.jobs.Update(ctx, jobID, domain.JobUpdate{
		ExpectStatus: &expect,
		Status:       &status,
		Error:        jobErr,
		CompletedAt:  &now,
	})
	if updateErr != nil {
		if errors.Is(updateErr, domain.ErrConflict) {
			s.logger.Warn().Str("job_id", jobID).Msg("discarding stale submission failure")
			return
		}
		s.logger.Error().Err(updateErr).Str("job_id", jobID).Msg("failed to record submission failure")
		return
	}
	s.metrics.JobsFailed.Inc()
	s.logger.Error().Err(cause).Str("job_id", jobID).Msg("job submission failed")
}

// GetJobStatus returns the job, refreshing from the provider first when the
// job is still in flight.
func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}
	return s.syncJob(ctx, job)
}

// GetVideoResult returns a completed job. Not-yet-completed jobs are synced
// once and, if still unfinished, rejected with the current status attached.
func (s *JobService) GetVideoResult(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		if job, err = s.syncJob(ctx, job); err != nil {
			return nil, err
		}
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, &domain.NotReadyError{Status: job.Status}
	}
	if job.Result == nil {
		s.logger.Error().Str("job_id", jobID).Msg("completed job has no result payload")
		return nil, fmt.Errorf("job %s completed without result: %w", jobID, domain.ErrInconsistent)
	}
	return job, nil
}

// SyncJobStatus reconciles the provider's view into the local record. Jobs
// without a provider handle or already terminal are returned unchanged.
func (s *JobService) SyncJobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.syncJob(ctx, job)
}

func (s *JobService) syncJob(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if job.Status.Terminal() || job.ProviderJobID == "" {
		return job, nil
	}
	snapshot, err := s.provider.GetVideoStatus(ctx, job.ProviderJobID)
	if err != nil {
		// Transient provider trouble must not fail the read; serve the
		// last known state.
		s.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("provider_job_id", job.ProviderJobID).
			Msg("status sync failed, returning cached job")
		return job, nil
	}
	mapped := MapProviderStatus(snapshot.Status)
	if mapped == job.Status {
		return job, nil
	}

	now := time.Now().UTC()
	observed := job.Status
	update := domain.JobUpdate{Status: &mapped, ExpectStatus: &observed}
	switch mapped {
	case domain.JobStatusProcessing:
		update.StartedAt = &now
	case domain.JobStatusCompleted:
		if snapshot.Result == nil {
			s.logger.Error().
				Str("job_id", job.ID).
				Str("provider_job_id", job.ProviderJobID).
				Msg("provider reported success without output, keeping job in flight")
			return job, nil
		}
		update.Result = &domain.VideoResult{
			URL:      snapshot.Result.URL,
			Format:   snapshot.Result.Format,
			Width:    snapshot.Result.Width,
			Height:   snapshot.Result.Height,
			Duration: snapshot.Result.Duration,
			Bytes:    snapshot.Result.Bytes,
		}
		update.CompletedAt = &now
	case domain.JobStatusFailed:
		jobErr := &domain.JobError{Code: "provider_failed", Message: "generation failed upstream", Timestamp: now}
		if snapshot.Failure != nil {
			if snapshot.Failure.Code != "" {
				jobErr.Code = snapshot.Failure.Code
			}
			if snapshot.Failure.Message != "" {
				jobErr.Message = snapshot.Failure.Message
			}
		}
		update.Error = jobErr
		update.CompletedAt = &now
	case domain.JobStatusCancelled:
		update.CompletedAt = &now
	}

	updated, err := s.jobs.Update(ctx, job.ID, update)
	if err != nil {
		// The job moved while the poll was outstanding, most likely a
		// cancel. The settled record wins over the poll snapshot.
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("stale_status", string(mapped)).
				Msg("discarding stale sync result")
			return s.jobs.GetByID(ctx, job.ID)
		}
		return nil, err
	}
	switch mapped {
	case domain.JobStatusCompleted:
		s.metrics.JobsCompleted.Inc()
	case domain.JobStatusFailed:
		s.metrics.JobsFailed.Inc()
	case domain.JobStatusCancelled:
		s.metrics.JobsCancelled.Inc()
	}
	s.logger.Info().
		Str("job_id", job.ID).
		Str("from", string(job.Status)).
		Str("to", string(mapped)).
		Msg("job status synced")
	return updated, nil
}

// CancelJob moves a non-terminal job to cancelled. The upstream cancel call
// is best effort: its failure is logged, never surfaced.
func (s *JobService) CancelJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, domain.NewConflictError(fmt.Sprintf("job is already %s", job.Status))
	}

	status := domain.JobStatusCancelled
	now := time.Now().UTC()
	updated, err := s.jobs.Update(ctx, jobID, domain.JobUpdate{
		Status:      &status,
		CompletedAt: &now,
	})
	if err != nil {
		// The job settled between the terminal check above and the
		// write; report the state it settled into.
		if errors.Is(err, domain.ErrConflict) {
			if current, getErr := s.jobs.GetByID(ctx, jobID); getErr == nil {
				return nil, domain.NewConflictError(fmt.Sprintf("job is already %s", current.Status))
			}
		}
		return nil, err
	}
	s.metrics.JobsCancelled.Inc()
	s.logger.Info().Str("job_id", jobID).Msg("job cancelled")

	if job.ProviderJobID != "" {
		providerJobID := job.ProviderJobID
		s.submissions.Add(1)
		go func() {
			defer s.submissions.Done()
			if err := s.provider.CancelVideo(context.Background(), providerJobID); err != nil {
				s.logger.Warn().Err(err).
					Str("job_id", jobID).
					Str("provider_job_id", providerJobID).
					Msg("upstream cancel failed")
			}
		}()
	}
	return updated, nil
}

// ListJobs returns one page of jobs plus the total match count.
func (s *JobService) ListJobs(ctx context.Context, filter domain.JobFilter, page domain.JobPage) ([]*domain.Job, int, error) {
	return s.jobs.List(ctx, filter, page)
}

// DeleteJob removes a terminal job. In-flight jobs must be cancelled first.
func (s *JobService) DeleteJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return domain.NewConflictError(fmt.Sprintf("job is still %s, cancel it before deleting", job.Status))
	}
	_, err = s.jobs.Delete(ctx, jobID)
	return err
}

// MapProviderStatus translates the provider's status vocabulary into the
// internal one. Unknown values are treated as still queued so a provider
// rollout never strands a job in a bogus terminal state.
func MapProviderStatus(status videogen.Status) domain.JobStatus {
	switch status {
	case videogen.StatusQueued:
		return domain.JobStatusPending
	case videogen.StatusProcessing:
		return domain.JobStatusProcessing
	case videogen.StatusSucceeded:
		return domain.JobStatusCompleted
	case videogen.StatusFailed:
		return domain.JobStatusFailed
	case videogen.StatusCancelled:
		return domain.JobStatusCancelled
	default:
		return domain.JobStatusPending
	}
}
