package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"notaspese/internal/core"
	"notaspese/internal/report"
	"notaspese/internal/services"
	"notaspese/internal/storage"

	"github.com/shopspring/decimal"
)

// ReportAPI is the slice of the report service the handlers need.
type ReportAPI interface {
	ImportStatement(ctx context.Context, file io.Reader, monthInput string) (core.ExpenseReport, error)
	CommitDraft(ctx context.Context, cardID string, draft core.ExpenseReport) ([]core.ExpenseReport, error)
	LoadReports(ctx context.Context, cardID string) ([]core.ExpenseReport, error)
	ReplaceHistory(ctx context.Context, cardID string, reports []core.ExpenseReport) ([]core.ExpenseReport, error)
	History(ctx context.Context, cardID string) ([]report.MonthlySummary, error)
	UpdateRowCategory(ctx context.Context, cardID, reportID, rowID, category string) ([]core.ExpenseReport, error)
	UpdateRowDetail(ctx context.Context, cardID, reportID, rowID, detail string) ([]core.ExpenseReport, error)
	UpdateRowAttachment(ctx context.Context, cardID, reportID, rowID string, att *core.Attachment) ([]core.ExpenseReport, error)
	CloseReport(ctx context.Context, cardID, reportID string) ([]core.ExpenseReport, error)
	DeleteReport(ctx context.Context, cardID, reportID string) ([]core.ExpenseReport, error)
	ExportSummary(ctx context.Context, cardID, monthFilter string, opening decimal.Decimal) (string, []byte, error)
	ExportExpenses(ctx context.Context, cardID, monthFilter string) (string, []byte, error)
	Balance(ctx context.Context, cardID, monthFilter string, opening decimal.Decimal) (services.BalanceView, error)
}

// CardAPI is the slice of the card store the handlers need.
type CardAPI interface {
	ListCards(ctx context.Context) ([]storage.Card, error)
	CreateCard(ctx context.Context, last4, holderName string) (storage.Card, error)
	DeleteCard(ctx context.Context, id string) error
}

type Server struct {
	http.Server
	reports     ReportAPI
	cards       CardAPI
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, reports ReportAPI, cards CardAPI) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		reports:     reports,
		cards:       cards,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/cards", s.withSecurityHeaders(s.handleCards))
	mux.HandleFunc("/api/cards/", s.withSecurityHeaders(s.handleCardByID))
	mux.HandleFunc("/api/reports", s.withSecurityHeaders(s.handleReports))
	mux.HandleFunc("/api/reports/import", s.withSecurityHeaders(s.handleImport))
	mux.HandleFunc("/api/reports/commit", s.withSecurityHeaders(s.handleCommit))
	mux.HandleFunc("/api/reports/row", s.withSecurityHeaders(s.handleRowEdit))
	mux.HandleFunc("/api/reports/close", s.withSecurityHeaders(s.handleClose))
	mux.HandleFunc("/api/history", s.withSecurityHeaders(s.handleHistory))
	mux.HandleFunc("/api/balance", s.withSecurityHeaders(s.handleBalance))
	mux.HandleFunc("/api/exports/summary", s.withSecurityHeaders(s.handleExportSummary))
	mux.HandleFunc("/api/exports/expenses", s.withSecurityHeaders(s.handleExportExpenses))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request", "client_ip", clientIP, "url", r.URL.Path)
		}

		// Mutating requests are rate limited per client.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
