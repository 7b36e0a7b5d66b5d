package rest

import (
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/tastemap/internal/core/services"
	"github.com/ewilliams-labs/tastemap/internal/worker"
)

type jobAccepted struct {
	Status string         `json:"status"`
	Job    worker.JobKind `json:"job"`
}

// Sync handles POST /sync. It runs in the request so the caller sees the
// counts of the snapshot it created.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	includeLiked := h.svc.Defaults().IncludeLiked
	if raw := r.URL.Query().Get("include_liked"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorWithCode(w, http.StatusBadRequest, "include_liked must be a boolean", errCodeInvalidParam)
			return
		}
		includeLiked = v
	}

	res, err := h.svc.Sync(r.Context(), services.SyncOptions{IncludeLiked: includeLiked})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EnrichAudioFeatures handles POST /enrich/audio-features
func (h *Handler) EnrichAudioFeatures(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		h.submit(w, worker.Job{Kind: worker.JobAudioFeatures})
		return
	}
	res, err := h.svc.EnrichAudioFeatures(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EnrichGenres handles POST /enrich/genres?limit=N
func (h *Handler) EnrichGenres(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidParam)
		return
	}
	if h.pool != nil {
		h.submit(w, worker.Job{Kind: worker.JobGenres, Limit: limit})
		return
	}
	res, err := h.svc.EnrichGenres(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// JobStats handles GET /jobs
func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeJSON(w, http.StatusOK, worker.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, h.pool.Stats())
}

func (h *Handler) submit(w http.ResponseWriter, job worker.Job) {
	if !h.pool.Submit(job) {
		writeErrorWithCode(w, http.StatusServiceUnavailable, "job queue is full", errCodeQueueFull)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted{Status: "queued", Job: job.Kind})
}
