package domain

import "testing"

func TestAggregateBatch(t *testing.T) {
	tests := []struct {
		name     string
		statuses []JobStatus
		status   BatchStatus
		progress BatchProgress
	}{
		{
			name:     "all pending",
			statuses: []JobStatus{JobStatusPending, JobStatusPending},
			status:   BatchStatusPending,
			progress: BatchProgress{Total: 2, Pending: 2},
		},
		{
			name:     "one started",
			statuses: []JobStatus{JobStatusPending, JobStatusProcessing},
			status:   BatchStatusProcessing,
			progress: BatchProgress{Total: 2, Pending: 2},
		},
		{
			name:     "partially terminal still processing",
			statuses: []JobStatus{JobStatusCompleted, JobStatusPending},
			status:   BatchStatusProcessing,
			progress: BatchProgress{Total: 2, Completed: 1, Pending: 1, Percentage: 50},
		},
		{
			name:     "all completed",
			statuses: []JobStatus{JobStatusCompleted, JobStatusCompleted, JobStatusCompleted},
			status:   BatchStatusCompleted,
			progress: BatchProgress{Total: 3, Completed: 3, Percentage: 100},
		},
		{
			name:     "mixed outcome is partial",
			statuses: []JobStatus{JobStatusCompleted, JobStatusCompleted, JobStatusFailed},
			status:   BatchStatusPartial,
			progress: BatchProgress{Total: 3, Completed: 2, Failed: 1, Percentage: 100},
		},
		{
			name:     "all failed",
			statuses: []JobStatus{JobStatusFailed, JobStatusFailed},
			status:   BatchStatusFailed,
			progress: BatchProgress{Total: 2, Failed: 2, Percentage: 100},
		},
		{
			name:     "cancelled without completions",
			statuses: []JobStatus{JobStatusCancelled, JobStatusFailed},
			status:   BatchStatusCancelled,
			progress: BatchProgress{Total: 2, Failed: 1, Percentage: 50},
		},
		{
			name:     "completed beats cancelled",
			statuses: []JobStatus{JobStatusCompleted, JobStatusCancelled},
			status:   BatchStatusPartial,
			progress: BatchProgress{Total: 2, Completed: 1, Percentage: 50},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, progress := AggregateBatch(tc.statuses)
			if status != tc.status {
				t.Fatalf("status = %s, want %s", status, tc.status)
			}
			if progress != tc.progress {
				t.Fatalf("progress = %+v, want %+v", progress, tc.progress)
			}
		})
	}
}

func TestAggregateBatchPercentageBounds(t *testing.T) {
	all := []JobStatus{
		JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled,
	}
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				_, progress := AggregateBatch([]JobStatus{a, b, c})
				if progress.Total != 3 {
					t.Fatalf("total = %d for %s/%s/%s", progress.Total, a, b, c)
				}
				if progress.Percentage < 0 || progress.Percentage > 100 {
					t.Fatalf("percentage %d out of range for %s/%s/%s", progress.Percentage, a, b, c)
				}
			}
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Fatalf("%s should be terminal", st)
		}
	}
	for _, st := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		if st.Terminal() {
			t.Fatalf("%s should not be terminal", st)
		}
	}
}
