package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/service"
)

// App bundles the injected services the HTTP handlers depend on.
type App struct {
	Jobs    *service.JobService
	Batches *service.BatchService
	Logger  infra.Logger
	Metrics *infra.Metrics
}

// NewApp builds the handler container. Everything comes in explicitly; there
// are no lazily initialized globals.
func NewApp(jobs *service.JobService, batches *service.BatchService, logger infra.Logger, metrics *infra.Metrics) *App {
	return &App{Jobs: jobs, Batches: batches, Logger: logger, Metrics: metrics}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// fail maps domain errors onto HTTP status codes and a stable error body.
func (a *App) fail(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		a.json(w, http.StatusBadRequest, map[string]string{
			"error":   "validation_error",
			"field":   vErr.Field,
			"message": vErr.Message,
		})
		return
	}
	var nrErr *domain.NotReadyError
	if errors.As(err, &nrErr) {
		a.json(w, http.StatusBadRequest, map[string]string{
			"error":   "not_ready",
			"status":  string(nrErr.Status),
			"message": nrErr.Error(),
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrInconsistent):
		a.Logger.Error().Err(err).Msg("internal consistency violation")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	default:
		a.Logger.Error().Err(err).Msg("unhandled error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
