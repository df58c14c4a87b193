package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"notaspese/internal/core"

	_ "modernc.org/sqlite"
)

// ErrCardNotFound marks lookups for a card id that was never registered.
var ErrCardNotFound = errors.New("card not found")

// Card statuses. A card held by the vault account is available for
// assignment; every other holder makes it assigned.
const (
	CardStatusAvailable = "available"
	CardStatusAssigned  = "assigned"

	vaultHolder = "CASSAFORTE"
)

// Card is a registered corporate card.
type Card struct {
	ID         string `json:"id"`
	Last4      string `json:"last4"`
	HolderName string `json:"holderName"`
	Status     string `json:"status"`
}

// SQLiteRepository persists cards and their report histories. Report
// histories are stored as one JSON document per card, mirroring the wire
// shape, and normalized again on read.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateCard registers a card. The vault holder name marks the card as
// available; any other holder assigns it.
func (r *SQLiteRepository) CreateCard(ctx context.Context, last4, holderName string) (Card, error) {
	card := Card{
		ID:         fmt.Sprintf("card-%d", time.Now().UnixNano()),
		Last4:      last4,
		HolderName: holderName,
		Status:     CardStatusAssigned,
	}
	if holderName == vaultHolder {
		card.Status = CardStatusAvailable
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (id, card_last4, holder_name, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		card.ID, card.Last4, card.HolderName, card.Status, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return Card{}, fmt.Errorf("insert card: %w", err)
	}

	slog.InfoContext(ctx, "Card registered",
		"id", card.ID,
		"last4", card.Last4,
		"status", card.Status)
	return card, nil
}

// ListCards returns all registered cards in registration order.
func (r *SQLiteRepository) ListCards(ctx context.Context) ([]Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, card_last4, holder_name, status FROM cards ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.Last4, &c.HolderName, &c.Status); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// GetCard looks a single card up by id.
func (r *SQLiteRepository) GetCard(ctx context.Context, id string) (Card, error) {
	var c Card
	err := r.db.QueryRowContext(ctx,
		`SELECT id, card_last4, holder_name, status FROM cards WHERE id = ?`, id).
		Scan(&c.ID, &c.Last4, &c.HolderName, &c.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Card{}, fmt.Errorf("get card %s: %w", id, ErrCardNotFound)
	}
	if err != nil {
		return Card{}, fmt.Errorf("get card %s: %w", id, err)
	}
	return c, nil
}

// DeleteCard removes a card and its report history in one transaction.
func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete card: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_reports WHERE card_id = ?`, id); err != nil {
		return fmt.Errorf("delete card reports: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete card affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete card %s: %w", id, ErrCardNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete card: %w", err)
	}

	slog.InfoContext(ctx, "Card deleted", "id", id)
	return nil
}

// GetReports loads a card's report history. A card with no stored history,
// or a history document that no longer parses, yields an empty slice rather
// than an error; the operator can always keep working from a clean state.
func (r *SQLiteRepository) GetReports(ctx context.Context, cardID string) ([]core.ExpenseReport, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT reports_json FROM expense_reports WHERE card_id = ?`, cardID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.ExpenseReport{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reports for %s: %w", cardID, err)
	}

	var reports []core.ExpenseReport
	if err := json.Unmarshal([]byte(raw), &reports); err != nil {
		slog.WarnContext(ctx, "Stored report history unreadable, starting empty",
			"card_id", cardID,
			"error", err)
		return []core.ExpenseReport{}, nil
	}
	return core.NormalizeReports(reports), nil
}

// PutReports replaces a card's report history. The document is normalized
// before write so stored state is always in canonical form.
func (r *SQLiteRepository) PutReports(ctx context.Context, cardID string, reports []core.ExpenseReport) error {
	normalized := core.NormalizeReports(reports)
	raw, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal reports for %s: %w", cardID, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expense_reports (card_id, reports_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(card_id) DO UPDATE SET reports_json = excluded.reports_json, updated_at = excluded.updated_at`,
		cardID, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert reports for %s: %w", cardID, err)
	}

	slog.InfoContext(ctx, "Report history saved",
		"card_id", cardID,
		"reports", len(normalized))
	return nil
}
