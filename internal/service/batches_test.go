package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/videogen"
)

func newTestBatchService(provider videogen.Provider, opts BatchOptions) (*BatchService, *JobService) {
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	if opts.JobTimeout == 0 {
		opts.JobTimeout = 5 * time.Second
	}
	logger := infra.Logger(zerolog.New(io.Discard))
	metrics := infra.NewMetrics()
	jobSvc := NewJobService(repo.NewJobRepository(), provider, logger, metrics)
	return NewBatchService(repo.NewBatchRepository(), jobSvc, logger, metrics, opts), jobSvc
}

func videoSpecs(prompts ...string) []CreateVideoInput {
	specs := make([]CreateVideoInput, 0, len(prompts))
	for _, p := range prompts {
		specs = append(specs, CreateVideoInput{Prompt: p})
	}
	return specs
}

// outcomeProvider settles every job instantly: prompts containing "fail"
// fail upstream, everything else succeeds.
func outcomeProvider() *fakeProvider {
	var mu sync.Mutex
	outcomes := make(map[string]videogen.Status)
	return &fakeProvider{
		createFn: func(req videogen.GenerateRequest) (*videogen.Handle, error) {
			id := "prov_" + req.RequestID
			mu.Lock()
			if strings.Contains(req.Prompt, "fail") {
				outcomes[id] = videogen.StatusFailed
			} else {
				outcomes[id] = videogen.StatusSucceeded
			}
			mu.Unlock()
			return &videogen.Handle{ID: id, Status: videogen.StatusQueued}, nil
		},
		statusFn: func(providerJobID string) (*videogen.StatusResult, error) {
			mu.Lock()
			status := outcomes[providerJobID]
			mu.Unlock()
			switch status {
			case videogen.StatusSucceeded:
				return &videogen.StatusResult{
					Status: videogen.StatusSucceeded,
					Result: &videogen.ResultPayload{URL: "https://cdn.example.com/" + providerJobID + ".mp4"},
				}, nil
			case videogen.StatusFailed:
				return &videogen.StatusResult{
					Status:  videogen.StatusFailed,
					Failure: &videogen.ErrorPayload{Code: "generation_error", Message: "boom"},
				}, nil
			default:
				return &videogen.StatusResult{Status: videogen.StatusProcessing}, nil
			}
		},
	}
}

func TestCreateBatchSizeBounds(t *testing.T) {
	ctx := context.Background()

	for _, bad := range [][]CreateVideoInput{nil, make([]CreateVideoInput, 11)} {
		svc, _ := newTestBatchService(outcomeProvider(), BatchOptions{})
		_, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: bad})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "videos" {
			t.Fatalf("size %d should fail on videos, got %v", len(bad), err)
		}
	}

	for _, n := range []int{1, 10} {
		svc, _ := newTestBatchService(outcomeProvider(), BatchOptions{})
		prompts := make([]string, n)
		for i := range prompts {
			prompts[i] = fmt.Sprintf("video %d", i)
		}
		batch, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: videoSpecs(prompts...)})
		if err != nil {
			t.Fatalf("size %d should be accepted: %v", n, err)
		}
		if batch.Progress.Total != n || len(batch.JobIDs) != n {
			t.Fatalf("progress.total = %d, jobs = %d, want %d", batch.Progress.Total, len(batch.JobIDs), n)
		}
		svc.WaitForProcessing()
	}
}

func TestCreateBatchRejectsInvalidSpecWithoutCreatingJobs(t *testing.T) {
	svc, jobSvc := newTestBatchService(outcomeProvider(), BatchOptions{})
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: []CreateVideoInput{
		{Prompt: "fine"},
		{Prompt: "also fine", Duration: intPtr(99)},
	}})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.Field != "videos[1].duration" {
		t.Fatalf("field should name the offending spec, got %q", vErr.Field)
	}

	_, total, _ := jobSvc.ListJobs(ctx, domain.JobFilter{}, domain.JobPage{})
	if total != 0 {
		t.Fatalf("no jobs should exist after rejected batch, found %d", total)
	}
}

func TestBatchPartialOutcome(t *testing.T) {
	svc, _ := newTestBatchService(outcomeProvider(), BatchOptions{})
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: videoSpecs("A", "B", "C fails")})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if batch.Status != domain.BatchStatusPending {
		t.Fatalf("fresh batch status = %s", batch.Status)
	}
	svc.WaitForProcessing()

	got, err := svc.GetBatchStatus(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatchStatus: %v", err)
	}
	if got.Status != domain.BatchStatusPartial {
		t.Fatalf("status = %s, want partial", got.Status)
	}
	want := domain.BatchProgress{Total: 3, Completed: 2, Failed: 1, Pending: 0, Percentage: 100}
	if got.Progress != want {
		t.Fatalf("progress = %+v, want %+v", got.Progress, want)
	}
	if got.CompletedAt == nil {
		t.Fatalf("terminal batch should have CompletedAt")
	}
}

func TestBatchAllOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		prompts []string
		want    domain.BatchStatus
	}{
		{"all succeed", []string{"A", "B"}, domain.BatchStatusCompleted},
		{"all fail", []string{"fail 1", "fail 2"}, domain.BatchStatusFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestBatchService(outcomeProvider(), BatchOptions{})
			ctx := context.Background()
			batch, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: videoSpecs(tc.prompts...)})
			if err != nil {
				t.Fatalf("CreateBatch: %v", err)
			}
			svc.WaitForProcessing()
			got, err := svc.GetBatchStatus(ctx, batch.ID)
			if err != nil {
				t.Fatalf("GetBatchStatus: %v", err)
			}
			if got.Status != tc.want {
				t.Fatalf("status = %s, want %s", got.Status, tc.want)
			}
		})
	}
}

func TestBatchConcurrencyBound(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	provider := outcomeProvider()
	inner := provider.createFn
	provider.createFn = func(req videogen.GenerateRequest) (*videogen.Handle, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return inner(req)
	}

	svc, _ := newTestBatchService(provider, BatchOptions{Concurrency: 2})
	prompts := make([]string, 10)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("video %d", i)
	}
	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{Videos: videoSpecs(prompts...)})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	svc.WaitForProcessing()

	if maxInFlight > 2 {
		t.Fatalf("concurrency bound violated: %d submissions in flight", maxInFlight)
	}
	got, err := svc.GetBatchStatus(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("GetBatchStatus: %v", err)
	}
	if got.Status != domain.BatchStatusCompleted || got.Progress.Completed != 10 {
		t.Fatalf("every job should still finish: %+v", got)
	}
}

func TestBatchFailureIsolation(t *testing.T) {
	provider := outcomeProvider()
	inner := provider.createFn
	provider.createFn = func(req videogen.GenerateRequest) (*videogen.Handle, error) {
		if strings.Contains(req.Prompt, "reject") {
			return nil, &videogen.APIError{Kind: videogen.KindBadRequest, Code: "content_policy_violation", Message: "rejected"}
		}
		return inner(req)
	}

	svc, jobSvc := newTestBatchService(provider, BatchOptions{})
	ctx := context.Background()
	batch, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: videoSpecs("good one", "reject me", "another good one")})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	svc.WaitForProcessing()

	got, _ := svc.GetBatchStatus(ctx, batch.ID)
	if got.Status != domain.BatchStatusPartial {
		t.Fatalf("status = %s, want partial", got.Status)
	}
	if got.Progress.Completed != 2 || got.Progress.Failed != 1 {
		t.Fatalf("progress = %+v", got.Progress)
	}

	failed, err := jobSvc.GetJobStatus(ctx, batch.JobIDs[1])
	if err != nil {
		t.Fatalf("GetJobStatus: %v", err)
	}
	if failed.Status != domain.JobStatusFailed || failed.Error == nil {
		t.Fatalf("rejected job should carry its error: %+v", failed)
	}
}

func TestCancelBatch(t *testing.T) {
	// Jobs that never progress upstream, so the batch stays in flight
	// until cancelled.
	provider := &fakeProvider{
		statusFn: func(providerJobID string) (*videogen.StatusResult, error) {
			return &videogen.StatusResult{Status: videogen.StatusProcessing}, nil
		},
	}
	svc, jobSvc := newTestBatchService(provider, BatchOptions{JobTimeout: 30 * time.Second})
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{Videos: videoSpecs("slow 1", "slow 2")})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	// Give the pool a moment to submit.
	deadline := time.Now().Add(2 * time.Second)
	for {
		jobs, _, _ := jobSvc.ListJobs(ctx, domain.JobFilter{Status: domain.JobStatusProcessing}, domain.JobPage{})
		if len(jobs) == 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancelled, err := svc.CancelBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("CancelBatch: %v", err)
	}
	if cancelled.Status != domain.BatchStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	for _, jobID := range batch.JobIDs {
		job, _ := jobSvc.GetJobStatus(ctx, jobID)
		if job.Status != domain.JobStatusCancelled {
			t.Fatalf("job %s = %s, want cancelled", jobID, job.Status)
		}
	}
	svc.WaitForProcessing()
	jobSvc.WaitForSubmissions()

	if _, err := svc.CancelBatch(ctx, batch.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("cancelling a terminal batch should conflict, got %v", err)
	}
}

func TestGetBatchStatusUnknown(t *testing.T) {
	svc, _ := newTestBatchService(outcomeProvider(), BatchOptions{})
	if _, err := svc.GetBatchStatus(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
