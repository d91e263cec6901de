package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/service"
)

type createVideoRequest struct {
	Prompt      string            `json:"prompt"`
	Duration    *int              `json:"duration,omitempty"`
	Resolution  string            `json:"resolution,omitempty"`
	AspectRatio string            `json:"aspect_ratio,omitempty"`
	Style       string            `json:"style,omitempty"`
	Seed        *int              `json:"seed,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (r createVideoRequest) toInput() service.CreateVideoInput {
	return service.CreateVideoInput{
		Prompt:      r.Prompt,
		Duration:    r.Duration,
		Resolution:  r.Resolution,
		AspectRatio: r.AspectRatio,
		Style:       r.Style,
		Seed:        r.Seed,
		Priority:    domain.JobPriority(r.Priority),
		Metadata:    r.Metadata,
	}
}

// VideosCreate accepts a generation request and answers immediately with the
// pending job; generation itself is create-then-poll.
func (a *App) VideosCreate(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Jobs.CreateVideo(r.Context(), req.toInput())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

// VideosList returns a filtered, paginated page of jobs.
func (a *App) VideosList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.JobFilter{
		Status:   domain.JobStatus(query.Get("status")),
		Priority: domain.JobPriority(query.Get("priority")),
	}
	page := domain.JobPage{Sort: domain.JobSort(query.Get("sort"))}
	if v, err := strconv.Atoi(query.Get("page")); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil {
		page.Limit = v
	}
	page = page.Normalize()

	jobs, total, err := a.Jobs.ListJobs(r.Context(), filter, page)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items": jobs,
		"total": total,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// VideosStatus returns the job, synced from the provider if still in flight.
func (a *App) VideosStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetJobStatus(r.Context(), jobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// VideosResult returns the completed job including its result payload.
func (a *App) VideosResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetVideoResult(r.Context(), jobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// VideosCancel cancels a pending or processing job.
func (a *App) VideosCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.CancelJob(r.Context(), jobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// VideosDelete removes a terminal job record.
func (a *App) VideosDelete(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := a.Jobs.DeleteJob(r.Context(), jobID); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
