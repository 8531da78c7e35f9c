package handlers

import (
	"net/http"
	"time"

	"github.com/crewdesk/api/internal/platform/httpx"
	"github.com/crewdesk/api/internal/repositories"
)

var startTime = time.Now()

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	health repositories.HealthRepository
	now    func() time.Time
}

// NewHealthHandlers constructs probe handlers. The health repository is
// optional; without one, readiness degenerates to liveness.
func NewHealthHandlers(health repositories.HealthRepository) *HealthHandlers {
	return &HealthHandlers{health: health, now: time.Now}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// Readyz probes external dependencies and reports aggregate readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.health == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.health.Collect(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("readiness_check_failed", "could not evaluate dependencies", http.StatusServiceUnavailable))
		return
	}

	checks := make(map[string]any, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = map[string]any{
			"status":  string(result.Status),
			"detail":  result.Detail,
			"latency": result.Latency.String(),
		}
	}

	status := http.StatusOK
	if report.Status == repositories.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, map[string]any{
		"status":       string(report.Status),
		"checks":       checks,
		"generated_at": report.GeneratedAt.UTC().Format(time.RFC3339),
	})
}
