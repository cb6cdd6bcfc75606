// Package app wires the dashboard service together and owns its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration (defaults, YAML file, environment)
//  2. Initialize logging and OpenTelemetry
//  3. Build the column resolver, the dataset loader and the chart registry
//  4. Create the dashboard, health and embed bridge services
//  5. Configure the chi router and its middleware chain
//  6. Run the initial load cycle and start the HTTP server
//
// # Routes
//
//	GET  /api/charts                  registered charts
//	GET  /api/charts/{id}             chart configuration (null when no data)
//	GET  /api/charts/{id}/export      csv or xlsx of the chart points
//	GET  /api/metrics                 headline metrics bundle
//	GET  /api/datasets                per dataset row count and source tier
//	GET  /api/datasets/{key}          dataset rows
//	POST /api/datasets/reload         new load cycle
//	GET  /api/embed/{id}/params       parsed embed parameters and their chart
//	GET  /api/health[/live|/ready]    health checks
//	GET  /ws/embed/{chartId}          embed height bridge
//	GET  /metrics                     Prometheus scrape endpoint
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
