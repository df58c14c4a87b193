package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"notaspese/internal/importer"
	"notaspese/internal/report"
	"notaspese/internal/services"
	"notaspese/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps service errors onto HTTP statuses. Import contract
// violations answer 422 with the exact operator-facing message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, importer.ErrImportFailed):
		writeError(w, http.StatusUnprocessableEntity, importer.ErrImportFailed.Error())
	case errors.Is(err, storage.ErrCardNotFound),
		errors.Is(err, report.ErrReportNotFound),
		errors.Is(err, report.ErrRowNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, report.ErrReportClosed),
		errors.Is(err, services.ErrInvalidCategory):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func requireCardID(w http.ResponseWriter, r *http.Request) (string, bool) {
	cardID := strings.TrimSpace(r.URL.Query().Get("cardId"))
	if cardID == "" {
		writeError(w, http.StatusBadRequest, "missing cardId")
		return "", false
	}
	return cardID, true
}
