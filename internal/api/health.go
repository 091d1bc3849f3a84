package api

import (
	"net/http"

	"github.com/adviceline/concierge/internal/api/respond"
	"github.com/adviceline/concierge/internal/health"
)

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	monitor *health.Monitor
}

func NewHealthHandler(monitor *health.Monitor) *HealthHandler {
	return &HealthHandler{monitor: monitor}
}

// CheckHealth is liveness: the process is up and serving.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, _ *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckReadiness reports the aggregate collaborator health with a
// per-component breakdown. 503 while any component is down.
func (h *HealthHandler) CheckReadiness(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}
	if h.monitor != nil {
		body["components"] = h.monitor.Components()
		if !h.monitor.IsHealthy() {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	respond.WriteJSON(w, status, body)
}
