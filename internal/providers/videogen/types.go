package videogen

import (
	"context"
	"fmt"
	"time"
)

// Status is the provider's own job state vocabulary. It is deliberately a
// separate type from the internal job status; callers map it explicitly.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// GenerateRequest captures the inputs for one video generation.
type GenerateRequest struct {
	Prompt      string
	Duration    int
	Resolution  string
	AspectRatio string
	Style       string
	Seed        *int
	RequestID   string
}

// Handle is the provider-assigned identity of an accepted generation request.
type Handle struct {
	ID     string
	Status Status
}

// ResultPayload is the normalized output of a finished generation.
type ResultPayload struct {
	URL      string
	Format   string
	Width    int
	Height   int
	Duration int
	Bytes    int64
}

// ErrorPayload carries the provider's failure details.
type ErrorPayload struct {
	Code    string
	Message string
}

// StatusResult is a poll snapshot. Result is set only on StatusSucceeded,
// Failure only on StatusFailed.
type StatusResult struct {
	Status  Status
	Result  *ResultPayload
	Failure *ErrorPayload
}

// Provider is the boundary the orchestration layer depends on. Client is the
// real implementation; tests swap in fakes.
type Provider interface {
	CreateVideo(ctx context.Context, req GenerateRequest) (*Handle, error)
	GetVideoStatus(ctx context.Context, providerJobID string) (*StatusResult, error)
	CancelVideo(ctx context.Context, providerJobID string) error
	Contract() Contract
}

// ErrorKind classifies upstream failures for callers.
type ErrorKind string

const (
	KindRateLimited  ErrorKind = "rate_limited"
	KindBadRequest   ErrorKind = "bad_request"
	KindUnauthorized ErrorKind = "unauthorized"
	KindUnavailable  ErrorKind = "service_unavailable"
	KindUnknown      ErrorKind = "unknown"
)

// APIError is the only error shape the client lets past its boundary for
// upstream failures. HTTPStatus and Code are kept for diagnostics.
type APIError struct {
	Kind       ErrorKind
	HTTPStatus int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("videogen: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("videogen: %s", e.Message)
}

// Retryable reports whether another attempt could plausibly succeed.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindUnavailable:
		return true
	}
	return false
}
