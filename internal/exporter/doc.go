// Package exporter writes computed plot tables as CSV, for the table
// download endpoint and the analyze command.
package exporter
