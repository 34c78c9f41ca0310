package http

import (
	"io"
	"io/fs"
	"log/slog"
	"net/http"
)

// UIHandler serves the embedded single-page dashboard.
type UIHandler struct {
	files  fs.FS
	assets http.Handler
	logger *slog.Logger
}

// NewUIHandler serves files from frontend. A nil frontend answers 404.
func NewUIHandler(frontend fs.FS, logger *slog.Logger) *UIHandler {
	h := &UIHandler{files: frontend, logger: logger.With(slog.String("handler", "ui"))}
	if frontend != nil {
		h.assets = http.FileServerFS(frontend)
	}
	return h
}

// ServeHTTP serves index.html for "/" and static files for everything else.
func (h *UIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		http.NotFound(w, r)
		return
	}
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		h.assets.ServeHTTP(w, r)
		return
	}

	f, err := h.files.Open("index.html")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "index.html missing from embedded frontend",
			slog.String("error", err.Error()))
		http.Error(w, "Dashboard page not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := io.Copy(w, f); err != nil {
		h.logger.DebugContext(r.Context(), "failed to write index.html", slog.String("error", err.Error()))
	}
}
