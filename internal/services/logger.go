package services

import (
	"log/slog"

	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
)

// serviceLogger returns logger, or the global one, tagged with the service
// name.
func serviceLogger(logger *slog.Logger, service string) *slog.Logger {
	return infrastructure.WithComponent(logger, service)
}
