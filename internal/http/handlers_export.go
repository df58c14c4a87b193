package http

import (
	"fmt"
	"net/http"
	"strings"

	"notaspese/internal/core"
	"notaspese/internal/report"

	"github.com/shopspring/decimal"
)

// handleExportSummary serves the full summary PDF:
// GET /api/exports/summary?cardId=&month=&opening=.
func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}

	name, data, err := s.reports.ExportSummary(r.Context(), cardID, monthFilter(r), openingBalance(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	servePDF(w, name, data)
}

// handleExportExpenses serves the expenses-only PDF:
// GET /api/exports/expenses?cardId=&month=.
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}

	name, data, err := s.reports.ExportExpenses(r.Context(), cardID, monthFilter(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	servePDF(w, name, data)
}

// handleBalance serves the totals panel for a filtered view:
// GET /api/balance?cardId=&month=&opening=.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	cardID, ok := requireCardID(w, r)
	if !ok {
		return
	}
	view, err := s.reports.Balance(r.Context(), cardID, monthFilter(r), openingBalance(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// openingBalance reads the operator-entered opening figure. The input is
// free text in the it-IT convention ("1.500,00"), so it goes through the
// same total normalizer as statement amounts: bad input degrades to zero
// instead of failing the request.
func openingBalance(r *http.Request) decimal.Decimal {
	return core.ParseAmount(r.URL.Query().Get("opening"))
}

func monthFilter(r *http.Request) string {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		return report.FilterAll
	}
	return month
}

func servePDF(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
