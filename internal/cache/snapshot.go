package cache

import (
	"time"

	"notaspese/internal/core"
)

// ReportSnapshots caches the last known report history per card so the UI
// gets an immediate answer while the authoritative store is consulted in the
// background. Entries expire on TTL and the least recently used card falls
// out first when too many cards are warm at once.
type ReportSnapshots struct {
	lru *LRUCache[[]core.ExpenseReport]
}

// NewReportSnapshots sizes the snapshot cache for the given number of warm
// cards.
func NewReportSnapshots(maxCards int, ttl time.Duration) *ReportSnapshots {
	return &ReportSnapshots{lru: NewLRUCache[[]core.ExpenseReport](maxCards, ttl)}
}

// Get returns the cached history for a card, if still fresh.
func (s *ReportSnapshots) Get(cardID string) ([]core.ExpenseReport, bool) {
	return s.lru.Get(cardID)
}

// Set stores a card's history snapshot.
func (s *ReportSnapshots) Set(cardID string, reports []core.ExpenseReport) {
	s.lru.Set(cardID, reports)
}

// Invalidate drops a card's snapshot, forcing the next read through to the
// store.
func (s *ReportSnapshots) Invalidate(cardID string) {
	s.lru.Delete(cardID)
}

// CleanExpired implements Cleaner.
func (s *ReportSnapshots) CleanExpired() int {
	return s.lru.CleanExpired()
}

// Size returns the number of cards currently cached.
func (s *ReportSnapshots) Size() int {
	return s.lru.Size()
}
