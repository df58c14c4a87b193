package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"notaspese/internal/cache"
	"notaspese/internal/core"
	"notaspese/internal/report"
	"notaspese/internal/storage"
)

func testService(t *testing.T) *ReportService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "notaspese.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewReportService(repo, cache.NewReportSnapshots(16, time.Minute), nil)
}

func testCard(t *testing.T, s *ReportService) storage.Card {
	t.Helper()
	card, err := s.storage.CreateCard(context.Background(), "1234", "MARIO ROSSI")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	return card
}

func statementFile(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []any{"Data operazione", "Carta", "Descrizione", "Importo in euro"}
	for col, v := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestImportAndCommit(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	draft, err := s.ImportStatement(ctx, statementFile(t, [][]any{
		{"05/03/2024", "1234", "RISTORANTE DA LUIGI", "-45,50"},
		{"06/03/2024", "1234", "RIMBORSO", "100,00"},
	}), "")
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if len(draft.Rows) != 2 || draft.MonthKey != "2024-03" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if draft.Closed {
		t.Fatal("draft must start open")
	}

	history, err := s.CommitDraft(ctx, card.ID, draft)
	if err != nil {
		t.Fatalf("CommitDraft: %v", err)
	}
	if len(history) != 1 || history[0].ID != draft.ID {
		t.Fatalf("unexpected history: %+v", history)
	}

	// Second commit lands in front.
	second, err := s.ImportStatement(ctx, statementFile(t, [][]any{
		{"02/04/2024", "1234", "TAXI", "-20,00"},
	}), "")
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	history, err = s.CommitDraft(ctx, card.ID, second)
	if err != nil {
		t.Fatalf("CommitDraft: %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID {
		t.Fatalf("newest commit should come first: %+v", history)
	}

	// Committed state survives a cold read from the store.
	s.snapshots.Invalidate(card.ID)
	loaded, err := s.LoadReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("LoadReports: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded = %d reports, want 2", len(loaded))
	}
}

func TestLoadReportsUsesSnapshot(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	cached := []core.ExpenseReport{{ID: "cached-1"}}
	s.snapshots.Set(card.ID, cached)

	got, err := s.LoadReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("LoadReports: %v", err)
	}
	if len(got) != 1 || got[0].ID != "cached-1" {
		t.Fatalf("expected the cached snapshot, got %+v", got)
	}
}

func TestReconcileKeepsNonEmptySnapshotOverEmptyStore(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	cached := []core.ExpenseReport{{ID: "cached-1"}}
	s.snapshots.Set(card.ID, cached)

	// Store is empty: reconcile must not blank the snapshot.
	s.reconcile(ctx, card.ID, cached)
	if got, ok := s.snapshots.Get(card.ID); !ok || len(got) != 1 {
		t.Fatalf("snapshot should survive empty store, got %+v ok=%v", got, ok)
	}

	// Store with data wins over the snapshot.
	if err := s.storage.PutReports(ctx, card.ID, []core.ExpenseReport{{ID: "stored-1"}, {ID: "stored-2"}}); err != nil {
		t.Fatalf("PutReports: %v", err)
	}
	s.reconcile(ctx, card.ID, cached)
	if got, _ := s.snapshots.Get(card.ID); len(got) != 2 {
		t.Fatalf("non-empty store should overwrite snapshot, got %+v", got)
	}
}

func TestWarmCache(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	var cards []storage.Card
	for i := 0; i < 3; i++ {
		card, err := s.storage.CreateCard(ctx, fmt.Sprintf("100%d", i), "MARIO ROSSI")
		if err != nil {
			t.Fatalf("CreateCard: %v", err)
		}
		if err := s.storage.PutReports(ctx, card.ID, []core.ExpenseReport{{ID: fmt.Sprintf("r-%d", i)}}); err != nil {
			t.Fatalf("PutReports: %v", err)
		}
		cards = append(cards, card)
	}

	if err := s.WarmCache(ctx); err != nil {
		t.Fatalf("WarmCache: %v", err)
	}
	for _, card := range cards {
		if _, ok := s.snapshots.Get(card.ID); !ok {
			t.Fatalf("card %s not warmed", card.ID)
		}
	}
}

func TestUpdateRowCategory(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	history := []core.ExpenseReport{{
		ID:   "r-1",
		Rows: []core.ExpenseRow{{ID: "row-1", Amount: core.ParseAmount("-10,00")}},
	}}
	if err := s.storage.PutReports(ctx, card.ID, history); err != nil {
		t.Fatalf("PutReports: %v", err)
	}

	if _, err := s.UpdateRowCategory(ctx, card.ID, "r-1", "row-1", "PARCHEGGI SENZA RICEVUTA"); err == nil {
		t.Fatal("made-up category should be rejected")
	} else if !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("err = %v, want ErrInvalidCategory", err)
	}

	updated, err := s.UpdateRowCategory(ctx, card.ID, "r-1", "row-1", core.ExpenseCategories[0])
	if err != nil {
		t.Fatalf("UpdateRowCategory: %v", err)
	}
	if updated[0].Rows[0].Category != core.ExpenseCategories[0] {
		t.Fatalf("category not applied: %+v", updated[0].Rows[0])
	}

	// Clearing is always allowed.
	updated, err = s.UpdateRowCategory(ctx, card.ID, "r-1", "row-1", "")
	if err != nil {
		t.Fatalf("clear category: %v", err)
	}
	if updated[0].Rows[0].Category != "" {
		t.Fatalf("category not cleared: %+v", updated[0].Rows[0])
	}
}

func TestClosedReportRejectsEdits(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	history := []core.ExpenseReport{{
		ID:   "r-1",
		Rows: []core.ExpenseRow{{ID: "row-1"}},
	}}
	if err := s.storage.PutReports(ctx, card.ID, history); err != nil {
		t.Fatalf("PutReports: %v", err)
	}

	if _, err := s.CloseReport(ctx, card.ID, "r-1"); err != nil {
		t.Fatalf("CloseReport: %v", err)
	}
	_, err := s.UpdateRowDetail(ctx, card.ID, "r-1", "row-1", "cena cliente")
	if !errors.Is(err, report.ErrReportClosed) {
		t.Fatalf("err = %v, want ErrReportClosed", err)
	}

	if _, err := s.DeleteReport(ctx, card.ID, "r-1"); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	reports, err := s.storage.GetReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetReports: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("report not deleted: %+v", reports)
	}
}

func TestExports(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	history := []core.ExpenseReport{{
		ID:        "r-1",
		CreatedAt: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Rows: []core.ExpenseRow{{
			ID:       "row-1",
			Date:     time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Movement: "RISTORANTE",
			Amount:   core.ParseAmount("-45,50"),
		}},
	}}
	if err := s.storage.PutReports(ctx, card.ID, history); err != nil {
		t.Fatalf("PutReports: %v", err)
	}

	name, data, err := s.ExportSummary(ctx, card.ID, report.FilterAll, decimal.RequireFromString("1000"))
	if err != nil {
		t.Fatalf("ExportSummary: %v", err)
	}
	if name != "riepilogo-1234.pdf" {
		t.Fatalf("summary name = %q", name)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatal("summary export is not a PDF")
	}

	name, data, err = s.ExportExpenses(ctx, card.ID, "2024-03")
	if err != nil {
		t.Fatalf("ExportExpenses: %v", err)
	}
	if name != "sole-spese-1234.pdf" {
		t.Fatalf("expenses name = %q", name)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatal("expenses export is not a PDF")
	}

	if _, _, err := s.ExportSummary(ctx, "missing", report.FilterAll, decimal.Zero); !errors.Is(err, storage.ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
}

func TestExportsEmbedLogo(t *testing.T) {
	s := testService(t)
	card := testCard(t, s)
	ctx := context.Background()

	history := []core.ExpenseReport{{
		ID: "r-1",
		Rows: []core.ExpenseRow{{
			ID:     "row-1",
			Amount: core.ParseAmount("-45,50"),
		}},
	}}
	if err := s.storage.PutReports(ctx, card.ID, history); err != nil {
		t.Fatalf("PutReports: %v", err)
	}

	var logo bytes.Buffer
	if err := jpeg.Encode(&logo, image.NewRGBA(image.Rect(0, 0, 8, 4)), nil); err != nil {
		t.Fatalf("encode logo: %v", err)
	}
	s.SetLogo(logo.Bytes())

	for name, export := range map[string]func() ([]byte, error){
		"summary": func() ([]byte, error) {
			_, data, err := s.ExportSummary(ctx, card.ID, report.FilterAll, decimal.Zero)
			return data, err
		},
		"expenses": func() ([]byte, error) {
			_, data, err := s.ExportExpenses(ctx, card.ID, report.FilterAll)
			return data, err
		},
	} {
		data, err := export()
		if err != nil {
			t.Fatalf("%s export: %v", name, err)
		}
		if !bytes.Contains(data, []byte("/Subtype /Image")) {
			t.Fatalf("%s export has no embedded logo image", name)
		}
	}

	// Undecodable logo bytes degrade to a plain band, never an error.
	s.SetLogo([]byte("not an image"))
	_, data, err := s.ExportSummary(ctx, card.ID, report.FilterAll, decimal.Zero)
	if err != nil {
		t.Fatalf("ExportSummary with bad logo: %v", err)
	}
	if bytes.Contains(data, []byte("/Subtype /Image")) {
		t.Fatal("bad logo bytes should not produce an image object")
	}
}
