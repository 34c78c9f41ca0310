package services

import "errors"

// Dashboard service errors
var (
	// Dataset errors
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	ErrDatasetLoad      = errors.New("dataset load failed")
	ErrReloadRunning    = errors.New("dataset reload already running")

	// Catalogue errors
	ErrUnknownPlot     = errors.New("plot not found")
	ErrUnknownAnalysis = errors.New("analysis type not found")

	// Commentary errors
	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrCommentaryDisabled = errors.New("commentary provider is not configured")
	// ErrRecommendationHidden rejects follow-ups before the recommendation is shown.
	ErrRecommendationHidden = errors.New("recommendation must be shown before asking a follow-up")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
