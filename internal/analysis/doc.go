// Package analysis implements the group-and-summarise pipeline behind every
// dashboard chart: filter and normalise rows, aggregate a metric per key,
// order and select groups, and discretise numeric columns into bands.
//
// All functions are pure. They borrow a *dataset.Table read-only and never
// keep state between calls, so running the same pipeline twice yields the
// same result.
package analysis
