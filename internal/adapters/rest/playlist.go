package rest

import "net/http"

// GetPersona handles GET /playlists/{id}/persona
func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	playlistID := r.PathValue("id")
	if playlistID == "" {
		writeError(w, http.StatusBadRequest, "playlist id is required")
		return
	}
	opts, ok := optionsOrError(w, r)
	if !ok {
		return
	}

	persona, err := h.svc.Persona(r.Context(), opts, playlistID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, persona)
}
