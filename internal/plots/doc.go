// Package plots defines the closed catalogue of dashboard charts and renders
// each one from the loaded transaction table.
//
// Every plot is a Definition: an identifier, the analysis kind it belongs
// to, display labels and the filter/aggregate/order parameters of its
// pipeline. Definitions are plain data. Rendering dispatches on the
// definition's Shape to one builder per family of charts, so adding a plot
// usually means adding a catalogue entry rather than code.
//
// A plot whose required columns are absent renders as Unavailable instead
// of failing, and never affects the other plots.
package plots
