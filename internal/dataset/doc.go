// Package dataset loads the transaction spreadsheet into an immutable
// columnar Table and keeps the current copy available to request handlers.
//
// Cells are stored as trimmed strings and converted on access, so the same
// table serves numeric, text and date readers without an upfront schema.
package dataset
