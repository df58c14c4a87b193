package sheets

import (
	"context"

	"notaspese/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror copies a committed report into the shared accounting
	// ledger so bookkeeping sees card movements without touching the
	// engine's own store.
	LedgerMirror interface {
		MirrorReport(ctx context.Context, cardLast4 string, rep core.ExpenseReport) error
	}
)
