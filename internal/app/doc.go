// Package app wires the dashboard together and owns its lifecycle.
//
// NewApplication loads configuration, initialises logging and telemetry,
// builds the dataset holder, the commentary orchestrator, the session
// manager and the websocket hub, and mounts the HTTP routes:
//
//	/api/health, /api/health/ready, /api/health/live, /api/version
//	/api/dashboard/...   dashboard JSON API (session-bound)
//	/api/log             client-side log lines
//	/ws                  dataset and commentary events
//	/metrics             Prometheus exposition
//	/                    embedded dashboard page
//
// Start launches the server together with the background work: the hub
// loop, the session sweeper, the runtime sampler and the initial dataset
// load. The server accepts requests before the dataset is loaded. Until then
// dashboard endpoints answer 503 and /api/health/ready reports not_ready.
//
// Run blocks until SIGINT or SIGTERM and then shuts down gracefully.
package app
