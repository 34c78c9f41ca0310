// Package commentary produces AI-generated recommendations and follow-up
// answers for a plot's static insights.
//
// A Generator is a single call to an external text-generation service. The
// Orchestrator builds the prompts, applies a timeout, caches recommendations
// per session on success only, and turns any failure into an inline warning
// so the rest of the dashboard keeps rendering.
package commentary
