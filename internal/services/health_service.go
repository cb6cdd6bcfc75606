package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// SnapshotSource exposes the current dataset snapshot
type SnapshotSource interface {
	Current() *loader.Snapshot
}

// HubStats reports embed bridge counters
type HubStats interface {
	GetHubMetrics() map[string]interface{}
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     SnapshotSource
	hub       HubStats
	startTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// DatasetHealth is the readiness view of one dataset
type DatasetHealth struct {
	Rows   int               `json:"rows"`
	Source domain.SourceTier `json:"source"`
}

// NewHealthService creates a new health service. hub may be nil.
func NewHealthService(store SnapshotSource, hub HubStats, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   contracts.Version,
		store:     store,
		hub:       hub,
		startTime: time.Now(),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := hs.ReadinessCheck(ctx)
	if status.Status == "ready" {
		status.Status = "ok"
	} else {
		status.Status = "degraded"
	}
	status.Runtime = hs.runtime()

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

// ReadinessCheck is ready once a snapshot with a non-empty primary dataset exists
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: hs.now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	snap := hs.store.Current()
	datasets := make(map[domain.DatasetKey]DatasetHealth)
	for _, key := range domain.AllDatasets() {
		ds := snap.Dataset(key)
		datasets[key] = DatasetHealth{Rows: len(ds.Rows), Source: ds.Source}
	}

	data := ServiceHealth{Status: "ready"}
	if snap.Dataset(domain.DatasetPrimary).Empty() {
		data = ServiceHealth{Status: "not_ready", Message: ErrNotReady.Error()}
		status.Status = "not_ready"
	}
	status.Services["data"] = data
	status.Services["datasets"] = datasets
	if snap != nil {
		status.Services["revision"] = snap.Revision
	}

	if hs.hub != nil {
		status.Services["embed_bridge"] = hs.hub.GetHubMetrics()
	}
	return status
}

// Ready reports whether the primary dataset is loaded
func (hs *HealthService) Ready() bool {
	return !hs.store.Current().Dataset(domain.DatasetPrimary).Empty()
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: hs.now(),
		Version:   hs.version,
		Runtime:   hs.runtime(),
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) runtime() map[string]interface{} {
	return map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
}
