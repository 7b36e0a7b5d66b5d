package rest

import (
	"net/http"
	"strings"
)

const defaultArtistSearchLimit = 20

// GetMetrics handles GET /insights/metrics
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Metrics(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetDuplicates handles GET /insights/duplicates
func (h *Handler) GetDuplicates(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	groups, err := h.svc.Duplicates(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetNearDuplicates handles GET /insights/near-duplicates
func (h *Handler) GetNearDuplicates(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	groups, err := h.svc.NearDuplicates(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetOverlap handles GET /insights/overlap?playlists=a,b,c
func (h *Handler) GetOverlap(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("playlists"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	ov, err := h.svc.Overlap(r.Context(), opts, ids)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// GetOverlapDetail handles GET /insights/overlap/{a}/{b}
func (h *Handler) GetOverlapDetail(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	tracks, err := h.svc.OverlapDetail(r.Context(), opts, r.PathValue("a"), r.PathValue("b"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// SearchArtists handles GET /insights/artists?q=name&limit=N
func (h *Handler) SearchArtists(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "q is required", errCodeInvalidParam)
		return
	}
	limit, err := intParam(r, "limit", defaultArtistSearchLimit)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidParam)
		return
	}
	matches, err := h.svc.SearchArtists(r.Context(), opts, query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// GetArtist handles GET /insights/artists/{key...}. Name keys may contain "/".
func (h *Handler) GetArtist(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.ArtistDetail(r.Context(), opts, r.PathValue("key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetDNA handles GET /insights/dna
func (h *Handler) GetDNA(w http.ResponseWriter, r *http.Request) {
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}
	res, err := h.svc.DNA(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DecodeDNA handles GET /dna/{token}. It needs no stored library.
func (h *Handler) DecodeDNA(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DecodeDNA(r.PathValue("token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
