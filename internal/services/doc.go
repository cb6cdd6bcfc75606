// Package services implements the business logic layer of the dashboard. It
// sits between the HTTP handlers and the loader, registry and indicators
// packages.
//
// # DashboardService
//
// DashboardService resolves chart ids through the registry and runs their
// builders against the current loader snapshot. Built configs are memoized
// by (snapshot revision, chart id, canonical parameter bag); a reload
// publishes a new revision, so stale entries are never served and are pruned
// afterwards. Builds with in-process UI handlers are not memoized.
//
// Headline metrics are computed once per revision.
//
// # HealthService
//
// HealthService reports liveness and readiness. The service is ready once a
// snapshot with a non-empty primary dataset exists; optional datasets never
// affect readiness.
package services
