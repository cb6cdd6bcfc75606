package http

import (
	"context"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/charts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/registry"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/services"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	Registry() *registry.Registry
	Snapshot() *loader.Snapshot
	Chart(ctx context.Context, id string, p charts.Params) (services.ChartResult, error)
	Metrics(ctx context.Context) (domain.MetricsBundle, uint64)
	Dataset(key domain.DatasetKey) (domain.Dataset, loader.Provenance, error)
	Reload(ctx context.Context) (*loader.Snapshot, error)
}

// HealthService defines the interface for health reporting
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Ready() bool
}

var (
	_ DashboardService = (*services.DashboardService)(nil)
	_ HealthService    = (*services.HealthService)(nil)
)
