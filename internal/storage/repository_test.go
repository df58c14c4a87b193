package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"notaspese/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "notaspese.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateCardStatus(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	assigned, err := repo.CreateCard(ctx, "1234", "MARIO ROSSI")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if assigned.Status != CardStatusAssigned {
		t.Fatalf("status = %q, want %q", assigned.Status, CardStatusAssigned)
	}

	vault, err := repo.CreateCard(ctx, "9876", "CASSAFORTE")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if vault.Status != CardStatusAvailable {
		t.Fatalf("status = %q, want %q", vault.Status, CardStatusAvailable)
	}

	cards, err := repo.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}

	got, err := repo.GetCard(ctx, assigned.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.Last4 != "1234" || got.HolderName != "MARIO ROSSI" {
		t.Fatalf("unexpected card: %+v", got)
	}
}

func TestGetCardNotFound(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.GetCard(context.Background(), "missing"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("err = %v, want ErrCardNotFound", err)
	}
	if err := repo.DeleteCard(context.Background(), "missing"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("delete err = %v, want ErrCardNotFound", err)
	}
}

func TestReportsRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	card, err := repo.CreateCard(ctx, "1234", "MARIO ROSSI")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	// No history yet: empty slice, not an error.
	reports, err := repo.GetReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetReports: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("fresh card reports = %d, want 0", len(reports))
	}

	history := []core.ExpenseReport{{
		ID:        "1700000000000",
		CreatedAt: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Rows: []core.ExpenseRow{{
			ID:       "1700000000000-0",
			Date:     time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Movement: "RISTORANTE DA LUIGI",
			Amount:   core.ParseAmount("-45,50"),
		}},
	}}
	if err := repo.PutReports(ctx, card.ID, history); err != nil {
		t.Fatalf("PutReports: %v", err)
	}

	got, err := repo.GetReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetReports: %v", err)
	}
	if len(got) != 1 || len(got[0].Rows) != 1 {
		t.Fatalf("reports = %+v, want one report with one row", got)
	}
	// Normalization on write filled in the month fields.
	if got[0].MonthKey != "2024-03" {
		t.Fatalf("MonthKey = %q, want 2024-03", got[0].MonthKey)
	}
	if !got[0].Rows[0].Amount.Equal(core.ParseAmount("-45,50")) {
		t.Fatalf("amount = %s, want -45.5", got[0].Rows[0].Amount)
	}

	// Overwrite replaces the whole document.
	if err := repo.PutReports(ctx, card.ID, nil); err != nil {
		t.Fatalf("PutReports overwrite: %v", err)
	}
	got, err = repo.GetReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetReports: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("reports after overwrite = %d, want 0", len(got))
	}
}

func TestGetReportsCorruptDocument(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	card, err := repo.CreateCard(ctx, "1234", "MARIO ROSSI")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO expense_reports (card_id, reports_json, updated_at) VALUES (?, ?, ?)`,
		card.ID, "{not json", "2024-03-10T00:00:00Z")
	if err != nil {
		t.Fatalf("seed corrupt document: %v", err)
	}

	reports, err := repo.GetReports(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetReports: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("corrupt document should read as empty, got %d reports", len(reports))
	}
}

func TestDeleteCardRemovesReports(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	card, err := repo.CreateCard(ctx, "1234", "MARIO ROSSI")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if err := repo.PutReports(ctx, card.ID, []core.ExpenseReport{{ID: "r1"}}); err != nil {
		t.Fatalf("PutReports: %v", err)
	}
	if err := repo.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expense_reports`).Scan(&count); err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if count != 0 {
		t.Fatalf("orphaned report documents = %d, want 0", count)
	}
}
