package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	apierrors "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/errors"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/exporter"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/middleware"
	api "github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/api/v1"
)

// ChartHandler serves chart configurations and their exports
type ChartHandler struct {
	service      DashboardService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service DashboardService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ChartHandler {
	return &ChartHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "chart_handler"),
	}
}

// Routes returns the chart routes
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCharts)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetChart)
		r.Get("/export", h.ExportChart)
	})
	return r
}

// ListCharts handles GET /api/charts
func (h *ChartHandler) ListCharts(w http.ResponseWriter, r *http.Request) {
	entries := h.service.Registry().List()
	resp := api.ChartListResponse{Charts: make([]api.ChartSummary, 0, len(entries))}
	for _, e := range entries {
		resp.Charts = append(resp.Charts, api.ChartSummary{ID: e.ID, Title: e.Title, Dataset: e.Dataset})
	}
	resp.Count = len(resp.Charts)
	render.JSON(w, r, resp)
}

// GetChart handles GET /api/charts/{id}
func (h *ChartHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	params, err := h.chartParams(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Chart(r.Context(), id, params)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.ChartResponse{
		Status:   "ok",
		ChartID:  res.Entry.ID,
		Title:    res.Entry.Title,
		Dataset:  res.Entry.Dataset,
		Revision: res.Revision,
		Config:   res.Config,
	})
}

// ExportChart handles GET /api/charts/{id}/export?format=csv|xlsx
func (h *ChartHandler) ExportChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	params, err := h.chartParams(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Chart(r.Context(), id, params)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// buffered so a failed write still yields a problem response
	var buf bytes.Buffer
	if err := exporter.Write(&buf, format, exporter.FromChart(res.Config)); err != nil {
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("chart_id", id),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrExportFailed)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(res.Entry.ID)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// chartParams reads and validates the builder parameters from the query
// string. hide lists category keys to switch off.
func (h *ChartHandler) chartParams(r *http.Request) (charts.Params, error) {
	q := r.URL.Query()
	query := api.ChartQuery{
		Filter:  strings.TrimSpace(q.Get("filter")),
		View:    strings.TrimSpace(q.Get("view")),
		Palette: strings.TrimSpace(q.Get("palette")),
		Theme:   strings.ToLower(strings.TrimSpace(q.Get("theme"))),
	}

	if raw := q.Get("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil {
			return charts.Params{}, apierrors.ErrValidation("width", "width must be a valid integer")
		}
		query.Width = width
	}
	if raw := q.Get("compact"); raw != "" {
		compact, err := strconv.ParseBool(raw)
		if err != nil {
			return charts.Params{}, apierrors.ErrValidation("compact", "compact must be true or false")
		}
		query.Compact = compact
	}

	if err := h.validator.ValidateStruct(query); err != nil {
		return charts.Params{}, err
	}

	p := charts.Params{
		Filter:  query.Filter,
		View:    query.View,
		Width:   query.Width,
		Palette: query.Palette,
		Theme:   query.Theme,
		Compact: query.Compact,
	}
	for _, list := range q["hide"] {
		for _, key := range strings.Split(list, ",") {
			if key = strings.TrimSpace(key); key == "" {
				continue
			}
			if p.Visible == nil {
				p.Visible = make(map[string]bool)
			}
			p.Visible[key] = false
		}
	}
	return p, nil
}
