package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/embed"
	apierrors "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/errors"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	api "github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/api/v1"
)

// EmbedHandler resolves embed URL parameters into the chart they select
type EmbedHandler struct {
	service      DashboardService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewEmbedHandler creates a new embed handler
func NewEmbedHandler(service DashboardService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "embed_handler"),
	}
}

// Routes returns the embed routes
func (h *EmbedHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/params", h.GetParams)
	return r
}

// GetParams handles GET /api/embed/{id}/params
func (h *EmbedHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// unknown ids win over bad parameters
	if _, err := h.service.Registry().Resolve(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	params, err := embed.ParseParams(id, r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Chart(r.Context(), id, params.ChartParams())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if params.Debug {
		h.logger.DebugContext(r.Context(), "embed parameters resolved",
			slog.String("chart_id", id),
			slog.Bool("has_config", res.Config != nil),
			slog.Uint64("revision", res.Revision))
	}

	render.JSON(w, r, api.EmbedParamsResponse{
		ChartID: id,
		Params:  params,
		Config:  res.Config,
	})
}
