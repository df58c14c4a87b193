package memory

import (
	"context"
	"testing"

	"notaspese/internal/core"
)

func TestMemoryStoreMirror(t *testing.T) {
	s := New()
	err := s.MirrorReport(context.Background(), "1234", core.ExpenseReport{ID: "r-1"})
	if err != nil {
		t.Fatalf("MirrorReport: %v", err)
	}
	err = s.MirrorReport(context.Background(), "9876", core.ExpenseReport{ID: "r-2"})
	if err != nil {
		t.Fatalf("MirrorReport: %v", err)
	}

	got := s.Mirrored()
	if len(got) != 2 {
		t.Fatalf("mirrored = %d, want 2", len(got))
	}
	if got[0].CardLast4 != "1234" || got[0].Report.ID != "r-1" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
}

func TestMemoryStoreRejectsEmptyCard(t *testing.T) {
	s := New()
	if err := s.MirrorReport(context.Background(), "", core.ExpenseReport{ID: "r-1"}); err == nil {
		t.Fatal("expected error for empty card last4")
	}
	if len(s.Mirrored()) != 0 {
		t.Fatal("failed mirror should not be recorded")
	}
}
