package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("videogen: api key is required")

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
)

// Options configures the video generation API client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration

	// Retry tunables. Zero values pick the defaults above.
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	Contract *Contract
}

// Client performs HTTP calls to the remote video generation API. It owns the
// retry policy and never lets raw transport errors past its boundary.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	logger      *infra.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	contract    Contract

	// sleep suspends between attempts; swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.videogen.example.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "videogen-turbo"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseDelay := opts.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := opts.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	contract := DefaultContract()
	if opts.Contract != nil {
		contract = *opts.Contract
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		model:       model,
		httpClient:  httpClient,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		contract:    contract,
		sleep:       sleepCtx,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Contract returns the active parameter constraints.
func (c *Client) Contract() Contract {
	return c.contract
}

type createVideoRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Seconds string `json:"seconds,omitempty"`
	Size    string `json:"size,omitempty"`
	Style   string `json:"style,omitempty"`
	Seed    *int   `json:"seed,omitempty"`
}

type videoResource struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output *struct {
		URL     string `json:"url"`
		Format  string `json:"format"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
		Seconds string `json:"seconds"`
		Bytes   int64  `json:"bytes"`
	} `json:"output,omitempty"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateVideo submits a generation request and returns the provider handle.
func (c *Client) CreateVideo(ctx context.Context, req GenerateRequest) (*Handle, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("videogen: prompt is required")
	}
	payload := createVideoRequest{
		Model:  c.model,
		Prompt: prompt,
		Style:  strings.TrimSpace(req.Style),
		Seed:   req.Seed,
	}
	if req.Duration > 0 {
		payload.Seconds = strconv.Itoa(req.Duration)
	}
	size, err := SizeFor(req.Resolution, req.AspectRatio)
	if err != nil {
		return nil, err
	}
	payload.Size = size

	var resource videoResource
	if err := c.do(ctx, http.MethodPost, "/videos", payload, &resource); err != nil {
		return nil, err
	}
	if resource.ID == "" {
		return nil, &APIError{Kind: KindUnknown, Message: "provider returned no job id"}
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("provider_job_id", resource.ID).
		Str("request_id", req.RequestID).
		Str("size", size).
		Msg("videogen: submitted generation request")
	return &Handle{ID: resource.ID, Status: parseStatus(resource.Status)}, nil
}

// GetVideoStatus polls the current state of a submitted generation.
func (c *Client) GetVideoStatus(ctx context.Context, providerJobID string) (*StatusResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(providerJobID) == "" {
		return nil, errors.New("videogen: provider job id is required")
	}
	var resource videoResource
	if err := c.do(ctx, http.MethodGet, "/videos/"+providerJobID, nil, &resource); err != nil {
		return nil, err
	}
	result := &StatusResult{Status: parseStatus(resource.Status)}
	if result.Status == StatusSucceeded && resource.Output != nil {
		seconds, _ := strconv.Atoi(resource.Output.Seconds)
		result.Result = &ResultPayload{
			URL:      resource.Output.URL,
			Format:   resource.Output.Format,
			Width:    resource.Output.Width,
			Height:   resource.Output.Height,
			Duration: seconds,
			Bytes:    resource.Output.Bytes,
		}
	}
	if result.Status == StatusFailed && resource.Error != nil {
		result.Failure = &ErrorPayload{Code: resource.Error.Code, Message: resource.Error.Message}
	}
	return result, nil
}

// CancelVideo requests cancellation upstream. Best effort: the provider may
// still finish the job, which callers must tolerate.
func (c *Client) CancelVideo(ctx context.Context, providerJobID string) error {
	if !c.HasCredentials() {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(providerJobID) == "" {
		return errors.New("videogen: provider job id is required")
	}
	return c.do(ctx, http.MethodPost, "/videos/"+providerJobID+"/cancel", nil, nil)
}

// do performs one API call with the retry policy applied: exponential backoff
// for transport errors and 5xx, Retry-After aware handling for 429, and no
// retries for deterministic 4xx failures.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("videogen: encode request: %w", err)
		}
		body = encoded
	}

	var lastErr *APIError
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		apiErr := c.doOnce(ctx, method, path, body, out)
		if apiErr == nil {
			return nil
		}
		lastErr = apiErr
		if !apiErr.Retryable() || attempt == c.maxAttempts {
			break
		}
		delay := c.backoffDelay(attempt)
		if apiErr.Kind == KindRateLimited && apiErr.RetryAfter > 0 {
			delay = apiErr.RetryAfter
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Str("kind", string(apiErr.Kind)).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("videogen: retrying request")
		if err := c.sleep(ctx, delay); err != nil {
			return &APIError{Kind: KindUnavailable, Message: "request cancelled while waiting to retry: " + err.Error()}
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) *APIError {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Kind: KindUnknown, Message: "build request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindUnavailable, Message: "http request: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindUnavailable, HTTPStatus: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode >= 300 {
		return translateHTTPError(resp, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &APIError{Kind: KindUnknown, HTTPStatus: resp.StatusCode, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}

func translateHTTPError(resp *http.Response, raw []byte) *APIError {
	var detail errorResponse
	_ = json.Unmarshal(raw, &detail)
	message := strings.TrimSpace(detail.Error.Message)
	if message == "" {
		message = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	apiErr := &APIError{
		HTTPStatus: resp.StatusCode,
		Code:       detail.Error.Code,
		Message:    message,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr.Kind = KindUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Includes content policy rejections. Deterministic, never retried.
		apiErr.Kind = KindBadRequest
	case resp.StatusCode >= 500:
		apiErr.Kind = KindUnavailable
	default:
		apiErr.Kind = KindUnknown
	}
	return apiErr
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusQueued:
		return StatusQueued
	case StatusProcessing:
		return StatusProcessing
	case StatusSucceeded:
		return StatusSucceeded
	case StatusFailed:
		return StatusFailed
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusQueued
	}
}

var _ Provider = (*Client)(nil)
