package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobPriority is stored and echoed back but does not affect scheduling order.
type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityNormal JobPriority = "normal"
	JobPriorityHigh   JobPriority = "high"
)

// VideoResult is the payload attached to a job once generation succeeds.
type VideoResult struct {
	URL      string `json:"url"`
	Format   string `json:"format,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
}

// JobError records why a job failed. Code comes from the provider when the
// failure originated upstream.
type JobError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Job encapsulates one video generation request and its tracked lifecycle.
type Job struct {
	ID            string            `json:"id"`
	Status        JobStatus         `json:"status"`
	Priority      JobPriority       `json:"priority"`
	Prompt        string            `json:"prompt"`
	Duration      int               `json:"duration,omitempty"`
	Resolution    string            `json:"resolution,omitempty"`
	AspectRatio   string            `json:"aspect_ratio,omitempty"`
	Style         string            `json:"style,omitempty"`
	Seed          *int              `json:"seed,omitempty"`
	ProviderJobID string            `json:"provider_job_id,omitempty"`
	Result        *VideoResult      `json:"result,omitempty"`
	Error         *JobError         `json:"error,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// JobUpdate carries a partial mutation applied by the repository. Nil fields
// are left untouched. ExpectStatus makes the update conditional: when set,
// the mutation only applies while the stored job is still in that status,
// which keeps a stale async submission result from stomping on a job that
// was cancelled in the meantime.
type JobUpdate struct {
	ExpectStatus  *JobStatus
	Status        *JobStatus
	ProviderJobID *string
	Result        *VideoResult
	Error         *JobError
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// JobFilter narrows list results. Zero values match everything.
type JobFilter struct {
	Status   JobStatus
	Priority JobPriority
}

// JobSort names the field list results are ordered by, newest first.
type JobSort string

const (
	JobSortCreatedAt JobSort = "created_at"
	JobSortUpdatedAt JobSort = "updated_at"
)

// JobPage is page/limit pagination with a sort field.
type JobPage struct {
	Page  int
	Limit int
	Sort  JobSort
}

// Normalize applies pagination defaults.
func (p JobPage) Normalize() JobPage {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Sort == "" {
		p.Sort = JobSortCreatedAt
	}
	return p
}
