package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/service"
)

type createBatchRequest struct {
	Videos []createVideoRequest `json:"videos"`
}

// BatchesCreate accepts a group of video specs and answers immediately with
// the pending batch.
func (a *App) BatchesCreate(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	input := service.CreateBatchInput{Videos: make([]service.CreateVideoInput, 0, len(req.Videos))}
	for _, video := range req.Videos {
		input.Videos = append(input.Videos, video.toInput())
	}
	batch, err := a.Batches.CreateBatch(r.Context(), input)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, batch)
}

// BatchesStatus returns the batch with live progress counts.
func (a *App) BatchesStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	batch, err := a.Batches.GetBatchStatus(r.Context(), batchID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, batch)
}

// BatchesCancel cancels every non-terminal job in the batch.
func (a *App) BatchesCancel(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	batch, err := a.Batches.CancelBatch(r.Context(), batchID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, batch)
}
