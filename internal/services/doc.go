// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the analysis packages: it resolves
// plot and analysis identifiers, fetches the current dataset, runs renders
// and facts, drives the per-session insight and recommendation panel, and
// announces dataset and commentary events on the websocket hub.
//
// # Available Services
//
//   - DashboardService: plots, panels, follow-up questions, facts, dataset reloads
//   - HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return the sentinel errors in errors.go, wrapped with context.
// Handlers map them to RFC 7807 problems. Recoverable failures (a plot that
// lacks columns, a commentary timeout, a facts section with missing data)
// are part of the successful result instead.
package services
