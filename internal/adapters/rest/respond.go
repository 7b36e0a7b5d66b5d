package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
)

const (
	errCodeNotFound      = "NOT_FOUND"
	errCodeNotSynced     = "NOT_SYNCED"
	errCodeInvalidParam  = "INVALID_PARAMETER"
	errCodeInvalidToken  = "INVALID_TOKEN"
	errCodeQueueFull     = "QUEUE_FULL"
	errCodeInternalError = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("rest: failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodeNotFound)
	case errors.Is(err, domain.ErrNotSynced):
		writeErrorWithCode(w, http.StatusConflict, "library has not been synced yet", errCodeNotSynced)
	case errors.Is(err, domain.ErrInvalidDedupeRule):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidParam)
	case errors.Is(err, domain.ErrMalformedToken):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidToken)
	default:
		slog.Error("rest: request failed", "error", err)
		writeErrorWithCode(w, http.StatusInternalServerError, err.Error(), errCodeInternalError)
	}
}

// analysisOptions reads the dedupe and include_liked query parameters.
// Missing parameters leave the orchestrator defaults in place.
func analysisOptions(r *http.Request) (services.AnalysisOptions, error) {
	var opts services.AnalysisOptions
	q := r.URL.Query()
	if raw := q.Get("dedupe"); raw != "" {
		rule, err := domain.ParseDedupeRule(raw)
		if err != nil {
			return services.AnalysisOptions{}, err
		}
		opts.Rule = rule
	}
	if raw := q.Get("include_liked"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return services.AnalysisOptions{}, errors.New("include_liked must be a boolean")
		}
		opts.IncludeLiked = &v
	}
	return opts, nil
}

// intParam parses an optional positive integer query parameter.
func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

// optionsOrError writes a 400 and reports false when the query is invalid.
func optionsOrError(w http.ResponseWriter, r *http.Request) (services.AnalysisOptions, bool) {
	opts, err := analysisOptions(r)
	if err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidParam)
		return services.AnalysisOptions{}, false
	}
	return opts, true
}
