package rest

import (
	"log/slog"
	"net/http"

	"github.com/ewilliams-labs/tastemap/internal/core/insights"
)

// ExportTracks handles GET /export/tracks.csv
func (h *Handler) ExportTracks(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.ExportRows(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tracks.csv"`)
	w.WriteHeader(http.StatusOK)
	// Headers are already sent, so a write failure can only be logged.
	if err := insights.WriteCSV(w, rows); err != nil {
		slog.Warn("rest: csv export interrupted", "error", err)
	}
}
