package memory

import (
	"context"
	"fmt"
	"sync"

	"notaspese/internal/core"
)

// MirroredReport is one ledger entry captured by the in-memory mirror.
type MirroredReport struct {
	CardLast4 string
	Report    core.ExpenseReport
}

// Store is an in-memory ledger mirror for local runs and tests.
type Store struct {
	mu    sync.Mutex
	items []MirroredReport
}

func New() *Store {
	return &Store{}
}

// MirrorReport records the report and returns immediately.
func (s *Store) MirrorReport(_ context.Context, cardLast4 string, rep core.ExpenseReport) error {
	if cardLast4 == "" {
		return fmt.Errorf("mirror report %s: empty card last4", rep.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, MirroredReport{CardLast4: cardLast4, Report: rep})
	return nil
}

// Mirrored returns a copy of everything recorded so far.
func (s *Store) Mirrored() []MirroredReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MirroredReport(nil), s.items...)
}
