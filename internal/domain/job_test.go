package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestJobJSONRoundTrip(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(45 * time.Second)
	job := Job{
		ID:            "job-1",
		Status:        JobStatusCompleted,
		Priority:      JobPriorityHigh,
		Prompt:        "A calico cat playing a piano on stage",
		Duration:      10,
		Resolution:    "720p",
		AspectRatio:   "16:9",
		ProviderJobID: "prov_123",
		Result: &VideoResult{
			URL:      "https://cdn.example.com/videos/job-1.mp4",
			Format:   "video/mp4",
			Width:    1280,
			Height:   720,
			Duration: 10,
			Bytes:    1048576,
		},
		Metadata:    map[string]string{"campaign": "launch"},
		CreatedAt:   started.Add(-time.Minute),
		UpdatedAt:   completed,
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(job, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, job)
	}
}

func TestJobJSONOmitsAbsentOptionals(t *testing.T) {
	job := Job{
		ID:        "job-2",
		Status:    JobStatusPending,
		Priority:  JobPriorityNormal,
		Prompt:    "Test",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, absent := range []string{"result", "error", "provider_job_id", "started_at", "completed_at", "metadata"} {
		if _, ok := fields[absent]; ok {
			t.Fatalf("field %s should be omitted when unset", absent)
		}
	}

	var decoded Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal struct: %v", err)
	}
	if decoded.Result != nil || decoded.Error != nil || decoded.StartedAt != nil {
		t.Fatalf("optionals should stay nil after round trip: %+v", decoded)
	}
}

func TestJobPageNormalize(t *testing.T) {
	page := JobPage{}.Normalize()
	if page.Page != 1 || page.Limit != 20 || page.Sort != JobSortCreatedAt {
		t.Fatalf("unexpected defaults: %+v", page)
	}
	page = JobPage{Page: 3, Limit: 500, Sort: JobSortUpdatedAt}.Normalize()
	if page.Limit != 100 {
		t.Fatalf("limit should be capped at 100, got %d", page.Limit)
	}
	if page.Page != 3 || page.Sort != JobSortUpdatedAt {
		t.Fatalf("explicit values should survive: %+v", page)
	}
}
