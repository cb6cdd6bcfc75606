package http

import (
	"net/http"

	"github.com/go-chi/render"

	api "github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/api/v1"
)

// MetricsHandler serves the headline metrics bundle
type MetricsHandler struct {
	service DashboardService
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(service DashboardService) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// GetMetrics handles GET /api/metrics. metrics is null when no headline
// metric resolved.
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	bundle, rev := h.service.Metrics(r.Context())
	render.JSON(w, r, api.MetricsResponse{
		Status:   "ok",
		Revision: rev,
		Metrics:  bundle,
	})
}
