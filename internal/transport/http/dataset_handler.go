package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/youssefzad/FinnishStartupDashboard-sub002/internal/errors"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/middleware"
	api "github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/api/v1"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 5000
)

// DatasetHandler exposes the loaded datasets and triggers reloads
type DatasetHandler struct {
	service      DashboardService
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DashboardService, query *middleware.QueryParamValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		query:        query,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "dataset_handler"),
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDatasets)
	r.Post("/reload", h.Reload)
	r.Get("/{key}", h.GetDataset)
	return r
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	resp := api.DatasetListResponse{
		Revision: snap.Revision,
		LoadedAt: snap.LoadedAt,
		Datasets: make([]api.DatasetSummary, 0, len(domain.AllDatasets())),
	}
	for _, key := range domain.AllDatasets() {
		ds := snap.Dataset(key)
		resp.Datasets = append(resp.Datasets, summarize(ds, snap.Provenance[key].Tab, snap.Provenance[key].Remediation))
	}
	render.JSON(w, r, resp)
}

// GetDataset handles GET /api/datasets/{key}?offset=&limit=
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	key := domain.DatasetKey(chi.URLParam(r, "key"))

	ds, prov, err := h.service.Dataset(key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	offset, ok := h.query.ValidateInt(w, r, "offset", 0, maxRowLimit*1000, 0)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxRowLimit, defaultRowLimit)
	if !ok {
		return
	}

	rows := ds.Rows
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}

	data := rows[offset:end]
	if data == nil {
		data = []domain.Row{}
	}

	render.JSON(w, r, api.DatasetRowsResponse{
		DatasetSummary: summarize(ds, prov.Tab, prov.Remediation),
		Columns:        columnsOf(rows),
		Offset:         offset,
		Limit:          limit,
		Data:           data,
	})
}

// Reload handles POST /api/datasets/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "datasets reloaded",
		slog.Uint64("revision", snap.Revision))
	render.JSON(w, r, api.ReloadResponse{
		Status:   "ok",
		Revision: snap.Revision,
		LoadedAt: snap.LoadedAt,
	})
}

func summarize(ds domain.Dataset, tab, remediation string) api.DatasetSummary {
	return api.DatasetSummary{
		Key:         ds.Key,
		Rows:        len(ds.Rows),
		Source:      ds.Source,
		Tab:         tab,
		Remediation: remediation,
	}
}

// columnsOf returns the sorted union of column names across rows
func columnsOf(rows []domain.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
