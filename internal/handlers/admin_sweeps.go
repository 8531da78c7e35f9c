package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewdesk/api/internal/platform/httpx"
	"github.com/crewdesk/api/internal/services"
)

// SweepHandlers exposes the internal booking status sweep trigger.
type SweepHandlers struct {
	sweeps services.SweepService
}

// NewSweepHandlers constructs a new SweepHandlers instance.
func NewSweepHandlers(sweeps services.SweepService) *SweepHandlers {
	return &SweepHandlers{sweeps: sweeps}
}

// Routes registers the /internal sweep endpoints.
func (h *SweepHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/sweeps/booking-status", h.runSweep)
}

func (h *SweepHandlers) runSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sweeps == nil {
		httpx.WriteError(ctx, w, httpx.NewError("sweep_service_unavailable", "sweep service unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.sweeps.Run(ctx)
	if err != nil {
		if errors.Is(err, services.ErrSweepAlreadyRunning) {
			httpx.WriteError(ctx, w, httpx.NewError("sweep_in_progress", "a sweep pass is already running", http.StatusConflict))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("sweep_failed", "sweep pass failed", http.StatusInternalServerError))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"runId":               result.RunID,
		"examined":            result.Examined,
		"completed":           result.Completed,
		"completedBookingIds": result.CompletedBookingIDs,
		"sweptAt":             result.SweptAt.UTC().Format(time.RFC3339),
	})
}
