package worker

import (
	"context"
	"fmt"
	"log/slog"

	"notaspese/internal/amqp"
	"notaspese/internal/sheets"
	"notaspese/internal/storage"
)

// SyncWorker mirrors committed expense reports from SQLite to the external
// ledger (Google Sheets in production, in-memory in tests).
type SyncWorker struct {
	storage *storage.SQLiteRepository
	mirror  sheets.LedgerMirror
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror sheets.LedgerMirror) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		mirror:  mirror,
	}
}

// HandleSyncMessage processes a single report sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReportSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"card_id", msg.CardID,
		"report_id", msg.ReportID)

	card, err := w.storage.GetCard(ctx, msg.CardID)
	if err != nil {
		return fmt.Errorf("get card from storage: %w", err)
	}

	reports, err := w.storage.GetReports(ctx, msg.CardID)
	if err != nil {
		return fmt.Errorf("get reports from storage: %w", err)
	}

	for _, rep := range reports {
		if rep.ID != msg.ReportID {
			continue
		}
		if err := w.mirror.MirrorReport(ctx, card.Last4, rep); err != nil {
			return fmt.Errorf("mirror report to ledger: %w", err)
		}
		slog.InfoContext(ctx, "Successfully mirrored report",
			"card_id", msg.CardID,
			"report_id", msg.ReportID,
			"rows", len(rep.Rows))
		return nil
	}

	// The report may have been deleted between commit and delivery. Nothing
	// to retry, so the message is considered handled.
	slog.WarnContext(ctx, "Report no longer exists, skipping",
		"card_id", msg.CardID,
		"report_id", msg.ReportID)
	return nil
}

// Run consumes sync messages until the context is cancelled or the broker
// connection fails for good.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeReportSync(ctx, func(msg *amqp.ReportSyncMessage) error {
		return w.HandleSyncMessage(ctx, msg)
	})
}
