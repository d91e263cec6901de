package domain

import (
	"math"
	"time"
)

// BatchStatus enumerates batch lifecycle states. Unlike a job's status it is
// derived from the aggregate statuses of the batch's jobs.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusPartial    BatchStatus = "partial"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether the batch has settled.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed, BatchStatusCancelled:
		return true
	}
	return false
}

// BatchProgress summarizes how far a batch has come. Pending counts both
// pending and processing jobs; percentage only moves on terminal outcomes.
type BatchProgress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
	Percentage int `json:"percentage"`
}

// Batch groups 1-10 jobs submitted together. It references jobs by id only;
// job records stay owned by the job repository.
type Batch struct {
	ID          string        `json:"id"`
	JobIDs      []string      `json:"job_ids"`
	Status      BatchStatus   `json:"status"`
	Progress    BatchProgress `json:"progress"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// AggregateBatch derives the batch status and progress from the statuses of
// its constituent jobs, in job-id order.
//
// Policy: a fully terminal batch with cancellations but no completions is
// reported cancelled rather than failed.
func AggregateBatch(statuses []JobStatus) (BatchStatus, BatchProgress) {
	prog := BatchProgress{Total: len(statuses)}
	var cancelled int
	allTerminal := true
	anyStarted := false
	for _, st := range statuses {
		switch st {
		case JobStatusCompleted:
			prog.Completed++
		case JobStatusFailed:
			prog.Failed++
		case JobStatusCancelled:
			cancelled++
		case JobStatusProcessing:
			prog.Pending++
			anyStarted = true
			allTerminal = false
		default:
			prog.Pending++
			allTerminal = false
		}
	}
	if prog.Total > 0 {
		prog.Percentage = int(math.Round(100 * float64(prog.Completed+prog.Failed) / float64(prog.Total)))
	}

	if !allTerminal {
		if anyStarted || prog.Completed > 0 || prog.Failed > 0 || cancelled > 0 {
			return BatchStatusProcessing, prog
		}
		return BatchStatusPending, prog
	}

	switch {
	case prog.Completed == prog.Total:
		return BatchStatusCompleted, prog
	case cancelled > 0 && prog.Completed == 0:
		return BatchStatusCancelled, prog
	case prog.Completed > 0 && prog.Failed+cancelled > 0:
		return BatchStatusPartial, prog
	default:
		return BatchStatusFailed, prog
	}
}
