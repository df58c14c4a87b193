package http

import (
	"net/http"
	"strings"

	"notaspese/internal/storage"
)

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cards, err := s.cards.ListCards(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if cards == nil {
			cards = []storage.Card{}
		}
		writeJSON(w, http.StatusOK, cards)

	case http.MethodPost:
		var body struct {
			Last4      string `json:"last4"`
			HolderName string `json:"holderName"`
		}
		if !readJSON(w, r, &body) {
			return
		}
		body.Last4 = strings.TrimSpace(body.Last4)
		body.HolderName = strings.TrimSpace(body.HolderName)
		if len(body.Last4) != 4 || body.HolderName == "" {
			writeError(w, http.StatusBadRequest, "last4 must be 4 digits and holderName is required")
			return
		}
		card, err := s.cards.CreateCard(r.Context(), body.Last4, body.HolderName)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, card)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCardByID serves DELETE /api/cards/{id}.
func (s *Server) handleCardByID(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/cards/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "missing card id")
		return
	}
	if err := s.cards.DeleteCard(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
