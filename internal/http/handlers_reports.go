package http

import (
	"net/http"
	"strings"

	"notaspese/internal/core"
)

// handleReports serves the report history document:
// GET /api/reports?cardId= and PUT /api/reports?cardId=.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		reports, err := s.reports.LoadReports(r.Context(), cardID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if reports == nil {
			reports = []core.ExpenseReport{}
		}
		writeJSON(w, http.StatusOK, reports)

	case http.MethodPut:
		var body []core.ExpenseReport
		if !readJSON(w, r, &body) {
			return
		}
		saved, err := s.reports.ReplaceHistory(r.Context(), cardID, body)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	case http.MethodDelete:
		reportID := strings.TrimSpace(r.URL.Query().Get("reportId"))
		if reportID == "" {
			writeError(w, http.StatusBadRequest, "missing reportId")
			return
		}
		updated, err := s.reports.DeleteReport(r.Context(), cardID, reportID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleImport parses an uploaded xlsx statement into a draft report:
// POST /api/reports/import (multipart form, fields "file" and "month").
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing statement file")
		return
	}
	defer file.Close()

	draft, err := s.reports.ImportStatement(r.Context(), file, r.FormValue("month"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// handleCommit appends a reviewed draft to the card's history:
// POST /api/reports/commit?cardId= with the draft as body.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}
	var draft core.ExpenseReport
	if !readJSON(w, r, &draft) {
		return
	}
	history, err := s.reports.CommitDraft(r.Context(), cardID, draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, history)
}

// handleRowEdit applies one field change to a row:
// PATCH /api/reports/row. Exactly one of category, detailDescription or
// attachment is applied per request, in that order of precedence.
func (s *Server) handleRowEdit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	var body struct {
		CardID            string           `json:"cardId"`
		ReportID          string           `json:"reportId"`
		RowID             string           `json:"rowId"`
		Category          *string          `json:"category"`
		DetailDescription *string          `json:"detailDescription"`
		Attachment        *core.Attachment `json:"attachment"`
		ClearAttachment   bool             `json:"clearAttachment"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if body.CardID == "" || body.ReportID == "" || body.RowID == "" {
		writeError(w, http.StatusBadRequest, "cardId, reportId and rowId are required")
		return
	}

	var (
		updated []core.ExpenseReport
		err     error
	)
	switch {
	case body.Category != nil:
		updated, err = s.reports.UpdateRowCategory(r.Context(), body.CardID, body.ReportID, body.RowID, strings.TrimSpace(*body.Category))
	case body.DetailDescription != nil:
		updated, err = s.reports.UpdateRowDetail(r.Context(), body.CardID, body.ReportID, body.RowID, *body.DetailDescription)
	case body.Attachment != nil:
		updated, err = s.reports.UpdateRowAttachment(r.Context(), body.CardID, body.ReportID, body.RowID, body.Attachment)
	case body.ClearAttachment:
		updated, err = s.reports.UpdateRowAttachment(r.Context(), body.CardID, body.ReportID, body.RowID, nil)
	default:
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleClose freezes a report: POST /api/reports/close?cardId=&reportId=.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}
	reportID := strings.TrimSpace(r.URL.Query().Get("reportId"))
	if reportID == "" {
		writeError(w, http.StatusBadRequest, "missing reportId")
		return
	}
	updated, err := s.reports.CloseReport(r.Context(), cardID, reportID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleHistory serves the per-month summary list: GET /api/history?cardId=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}
	summaries, err := s.reports.History(r.Context(), cardID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
