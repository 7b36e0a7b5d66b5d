package rest

import (
	"net/http"

	"github.com/ewilliams-labs/tastemap/internal/core/services"
	"github.com/ewilliams-labs/tastemap/internal/worker"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    *services.Orchestrator // Dependency on the Core Service
	pool   *worker.Pool           // nil runs enrichment inline
	router *http.ServeMux         // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, pool *worker.Pool) *Handler {
	h := &Handler{
		svc:    svc,
		pool:   pool,
		router: http.NewServeMux(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	// Library lifecycle
	h.router.HandleFunc("POST /sync", h.Sync)
	h.router.HandleFunc("POST /enrich/audio-features", h.EnrichAudioFeatures)
	h.router.HandleFunc("POST /enrich/genres", h.EnrichGenres)
	h.router.HandleFunc("GET /jobs", h.JobStats)

	// Insights
	h.router.HandleFunc("GET /insights/metrics", h.GetMetrics)
	h.router.HandleFunc("GET /insights/duplicates", h.GetDuplicates)
	h.router.HandleFunc("GET /insights/near-duplicates", h.GetNearDuplicates)
	h.router.HandleFunc("GET /insights/overlap", h.GetOverlap)
	h.router.HandleFunc("GET /insights/overlap/{a}/{b}", h.GetOverlapDetail)
	h.router.HandleFunc("GET /insights/artists", h.SearchArtists)
	h.router.HandleFunc("GET /insights/artists/{key...}", h.GetArtist)
	h.router.HandleFunc("GET /insights/dna", h.GetDNA)
	h.router.HandleFunc("GET /dna/{token}", h.DecodeDNA)
	h.router.HandleFunc("GET /playlists/{id}/persona", h.GetPersona)
	h.router.HandleFunc("GET /export/tracks.csv", h.ExportTracks)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "tastemap is live"})
}
