// Package api contains the HTTP contract definitions of the startup dashboard.
// Version v1 represents the current stable API version.
package api

import (
	"time"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// Chart API

// ChartSummary lists one registered chart
type ChartSummary struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Dataset domain.DatasetKey `json:"dataset"`
}

// ChartListResponse is returned by GET /api/charts
type ChartListResponse struct {
	Charts []ChartSummary `json:"charts"`
	Count  int            `json:"count"`
}

// ChartQuery carries the builder parameters accepted on chart endpoints
type ChartQuery struct {
	Filter  string `json:"filter" validate:"omitempty,max=64"`
	View    string `json:"view" validate:"omitempty,max=64"`
	Width   int    `json:"width" validate:"gte=0,lte=10000"`
	Palette string `json:"palette" validate:"omitempty,palette"`
	Theme   string `json:"theme" validate:"omitempty,oneof=light dark system"`
	Compact bool   `json:"compact"`
}

// ChartResponse is returned by GET /api/charts/{id}. Config is null when the
// chart has nothing to show.
type ChartResponse struct {
	Status   string              `json:"status"`
	ChartID  string              `json:"chart_id"`
	Title    string              `json:"title"`
	Dataset  domain.DatasetKey   `json:"dataset"`
	Revision uint64              `json:"revision"`
	Config   *domain.ChartConfig `json:"config"`
}

// ExportQuery selects the export file format
type ExportQuery struct {
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

// Metrics API

// MetricsResponse is returned by GET /api/metrics. Metrics is null only when
// no metric resolved.
type MetricsResponse struct {
	Status   string               `json:"status"`
	Revision uint64               `json:"revision"`
	Metrics  domain.MetricsBundle `json:"metrics"`
}

// Dataset API

// DatasetSummary describes one dataset of the current snapshot
type DatasetSummary struct {
	Key         domain.DatasetKey `json:"key"`
	Rows        int               `json:"rows"`
	Source      domain.SourceTier `json:"source"`
	Tab         string            `json:"tab,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
}

// DatasetListResponse is returned by GET /api/datasets
type DatasetListResponse struct {
	Revision uint64           `json:"revision"`
	LoadedAt time.Time        `json:"loaded_at"`
	Datasets []DatasetSummary `json:"datasets"`
}

// DatasetRowsResponse is returned by GET /api/datasets/{key}
type DatasetRowsResponse struct {
	DatasetSummary
	Columns []string     `json:"columns"`
	Offset  int          `json:"offset"`
	Limit   int          `json:"limit"`
	Data    []domain.Row `json:"data"`
}

// ReloadResponse is returned by POST /api/datasets/reload
type ReloadResponse struct {
	Status   string    `json:"status"`
	Revision uint64    `json:"revision"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Embed API

// EmbedParamsResponse is returned by GET /api/embed/{id}/params
type EmbedParamsResponse struct {
	ChartID string              `json:"chart_id"`
	Params  any                 `json:"params"`
	Config  *domain.ChartConfig `json:"config"`
}
