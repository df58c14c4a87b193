package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"notaspese/internal/amqp"
	"notaspese/internal/cache"
	"notaspese/internal/core"
	"notaspese/internal/importer"
	"notaspese/internal/pdf"
	"notaspese/internal/report"
	"notaspese/internal/storage"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCategory rejects category values outside the fixed list.
	ErrInvalidCategory = errors.New("invalid expense category")

	// ErrPersistenceUnavailable wraps store failures after the in-memory
	// state was already updated. Callers keep the returned data and decide
	// whether to retry.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// ReportService orchestrates report operations across sqlite, the snapshot
// cache and AMQP.
type ReportService struct {
	storage    *storage.SQLiteRepository
	snapshots  *cache.ReportSnapshots
	amqpClient *amqp.Client
	logo       []byte
}

func NewReportService(storage *storage.SQLiteRepository, snapshots *cache.ReportSnapshots, amqpClient *amqp.Client) *ReportService {
	return &ReportService{
		storage:    storage,
		snapshots:  snapshots,
		amqpClient: amqpClient,
	}
}

// SetLogo installs the brand logo embedded on every export band. Loaded
// once at startup; exports render without a logo when none is set or the
// bytes do not decode.
func (s *ReportService) SetLogo(logo []byte) {
	s.logo = logo
}

// ImportStatement parses an uploaded statement into a draft report. The
// draft is not persisted; the operator reviews it and commits explicitly.
func (s *ReportService) ImportStatement(ctx context.Context, file io.Reader, monthInput string) (core.ExpenseReport, error) {
	rows, err := importer.ParseStatement(file)
	if err != nil {
		return core.ExpenseReport{}, err
	}
	draft := importer.BuildDraftReport(rows, monthInput, time.Now())
	slog.InfoContext(ctx, "Statement imported as draft",
		"report_id", draft.ID,
		"rows", len(draft.Rows),
		"month", draft.MonthKey)
	return draft, nil
}

// CommitDraft prepends the draft to the card's history and persists it. The
// committed history is returned even when persistence fails, wrapped in
// ErrPersistenceUnavailable so the caller keeps working on the in-memory
// state. A successful commit also notifies the sync worker; a broker outage
// never fails the commit.
func (s *ReportService) CommitDraft(ctx context.Context, cardID string, draft core.ExpenseReport) ([]core.ExpenseReport, error) {
	stored, err := s.storage.GetReports(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load history for commit: %w", err)
	}

	history := report.Prepend(stored, core.NormalizeReport(draft))

	if err := s.storage.PutReports(ctx, cardID, history); err != nil {
		slog.ErrorContext(ctx, "Failed to persist committed report",
			"card_id", cardID,
			"report_id", draft.ID,
			"error", err)
		s.snapshots.Set(cardID, history)
		return history, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}

	s.snapshots.Set(cardID, history)
	s.publishSyncMessage(ctx, cardID, draft.ID)
	return history, nil
}

// LoadReports returns a card's history. A fresh snapshot answers
// immediately while the store is reconciled in the background; otherwise the
// store is read synchronously. An empty store result never overwrites a
// non-empty snapshot, so a half-migrated backend cannot blank an operator's
// working set.
func (s *ReportService) LoadReports(ctx context.Context, cardID string) ([]core.ExpenseReport, error) {
	if cached, ok := s.snapshots.Get(cardID); ok {
		go s.reconcile(context.WithoutCancel(ctx), cardID, cached)
		return cached, nil
	}

	stored, err := s.storage.GetReports(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	s.snapshots.Set(cardID, stored)
	return stored, nil
}

func (s *ReportService) reconcile(ctx context.Context, cardID string, cached []core.ExpenseReport) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stored, err := s.storage.GetReports(ctx, cardID)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot reconcile failed", "card_id", cardID, "error", err)
		return
	}
	if len(stored) == 0 && len(cached) > 0 {
		return
	}
	s.snapshots.Set(cardID, stored)
}

// WarmCache preloads the snapshot cache for every registered card, a few
// cards at a time.
func (s *ReportService) WarmCache(ctx context.Context) error {
	cards, err := s.storage.ListCards(ctx)
	if err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, card := range cards {
		card := card
		g.Go(func() error {
			reports, err := s.storage.GetReports(ctx, card.ID)
			if err != nil {
				return fmt.Errorf("warm card %s: %w", card.ID, err)
			}
			s.snapshots.Set(card.ID, reports)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Snapshot cache warmed", "cards", len(cards))
	return nil
}

// UpdateRowCategory sets a row's category. Only values from the fixed
// category list (or empty, clearing it) are accepted.
func (s *ReportService) UpdateRowCategory(ctx context.Context, cardID, reportID, rowID, category string) ([]core.ExpenseReport, error) {
	if category != "" && !core.ValidCategory(category) {
		return nil, fmt.Errorf("category %q: %w", category, ErrInvalidCategory)
	}
	return s.updateRow(ctx, cardID, reportID, rowID, func(row core.ExpenseRow) core.ExpenseRow {
		row.Category = category
		return row
	})
}

// UpdateRowDetail sets a row's free-text detail description.
func (s *ReportService) UpdateRowDetail(ctx context.Context, cardID, reportID, rowID, detail string) ([]core.ExpenseReport, error) {
	return s.updateRow(ctx, cardID, reportID, rowID, func(row core.ExpenseRow) core.ExpenseRow {
		row.DetailDescription = detail
		return row
	})
}

// UpdateRowAttachment attaches or replaces a row's receipt. A nil attachment
// removes it.
func (s *ReportService) UpdateRowAttachment(ctx context.Context, cardID, reportID, rowID string, att *core.Attachment) ([]core.ExpenseReport, error) {
	return s.updateRow(ctx, cardID, reportID, rowID, func(row core.ExpenseRow) core.ExpenseRow {
		row.Attachment = att
		return row
	})
}

func (s *ReportService) updateRow(ctx context.Context, cardID, reportID, rowID string, fn func(core.ExpenseRow) core.ExpenseRow) ([]core.ExpenseReport, error) {
	return s.mutateHistory(ctx, cardID, func(history []core.ExpenseReport) ([]core.ExpenseReport, error) {
		return report.UpdateRow(history, reportID, rowID, fn)
	})
}

// CloseReport freezes a report against further row edits.
func (s *ReportService) CloseReport(ctx context.Context, cardID, reportID string) ([]core.ExpenseReport, error) {
	return s.mutateHistory(ctx, cardID, func(history []core.ExpenseReport) ([]core.ExpenseReport, error) {
		return report.CloseReport(history, reportID)
	})
}

// DeleteReport removes a report from the card's history.
func (s *ReportService) DeleteReport(ctx context.Context, cardID, reportID string) ([]core.ExpenseReport, error) {
	return s.mutateHistory(ctx, cardID, func(history []core.ExpenseReport) ([]core.ExpenseReport, error) {
		return report.DeleteReport(history, reportID)
	})
}

func (s *ReportService) mutateHistory(ctx context.Context, cardID string, fn func([]core.ExpenseReport) ([]core.ExpenseReport, error)) ([]core.ExpenseReport, error) {
	stored, err := s.storage.GetReports(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	updated, err := fn(stored)
	if err != nil {
		return nil, err
	}

	if err := s.storage.PutReports(ctx, cardID, updated); err != nil {
		s.snapshots.Set(cardID, updated)
		return updated, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	s.snapshots.Set(cardID, updated)
	return updated, nil
}

// ReplaceHistory overwrites a card's whole history with the given document,
// normalized. This backs the bulk save endpoint the client uses after local
// edits.
func (s *ReportService) ReplaceHistory(ctx context.Context, cardID string, reports []core.ExpenseReport) ([]core.ExpenseReport, error) {
	history := core.NormalizeReports(reports)
	if err := s.storage.PutReports(ctx, cardID, history); err != nil {
		s.snapshots.Set(cardID, history)
		return history, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	s.snapshots.Set(cardID, history)
	return history, nil
}

// ExportSummary renders the full summary PDF for a card under the given
// month filter.
func (s *ReportService) ExportSummary(ctx context.Context, cardID, monthFilter string, opening decimal.Decimal) (string, []byte, error) {
	card, rows, err := s.exportRows(ctx, cardID, monthFilter)
	if err != nil {
		return "", nil, err
	}

	data := pdf.BuildSummary(pdf.SummaryInput{
		CardLast4:   card.Last4,
		HolderName:  card.HolderName,
		MonthFilter: monthFilter,
		Opening:     opening,
		Rows:        rows,
		Logo:        s.logo,
		GeneratedAt: time.Now(),
	})
	return pdf.SummaryFileName(card.Last4), data, nil
}

// ExportExpenses renders the expenses-only PDF for a card under the given
// month filter.
func (s *ReportService) ExportExpenses(ctx context.Context, cardID, monthFilter string) (string, []byte, error) {
	card, rows, err := s.exportRows(ctx, cardID, monthFilter)
	if err != nil {
		return "", nil, err
	}

	data := pdf.BuildExpenses(pdf.ExpensesInput{
		CardLast4:   card.Last4,
		HolderName:  card.HolderName,
		MonthFilter: monthFilter,
		Rows:        rows,
		Logo:        s.logo,
		GeneratedAt: time.Now(),
	})
	return pdf.ExpensesFileName(card.Last4), data, nil
}

func (s *ReportService) exportRows(ctx context.Context, cardID, monthFilter string) (storage.Card, []report.Row, error) {
	card, err := s.storage.GetCard(ctx, cardID)
	if err != nil {
		return storage.Card{}, nil, err
	}
	reports, err := s.LoadReports(ctx, cardID)
	if err != nil {
		return storage.Card{}, nil, err
	}
	return card, report.RowsForFilter(reports, monthFilter), nil
}

// BalanceView is the totals panel for a filtered row view. Opening comes
// from the operator, Closing is derived; nothing reconciles either against
// an external ledger.
type BalanceView struct {
	Totals  report.Totals   `json:"totals"`
	Opening decimal.Decimal `json:"opening"`
	Closing decimal.Decimal `json:"closing"`
}

// Balance sums the rows visible under the month filter and chains the
// operator-entered opening figure into a closing balance.
func (s *ReportService) Balance(ctx context.Context, cardID, monthFilter string, opening decimal.Decimal) (BalanceView, error) {
	_, rows, err := s.exportRows(ctx, cardID, monthFilter)
	if err != nil {
		return BalanceView{}, err
	}
	totals := report.ComputeTotals(rows)
	return BalanceView{
		Totals:  totals,
		Opening: opening,
		Closing: report.ClosingBalance(opening, totals),
	}, nil
}

// History computes the monthly summary list for a card.
func (s *ReportService) History(ctx context.Context, cardID string) ([]report.MonthlySummary, error) {
	reports, err := s.LoadReports(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return report.MonthlyHistory(reports), nil
}

func (s *ReportService) publishSyncMessage(ctx context.Context, cardID, reportID string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishReportSync(ctx, cardID, reportID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"card_id", cardID,
			"report_id", reportID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *ReportService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close report service: %v", errs)
	}

	return nil
}
