// Package importer turns bank statement xlsx exports into draft expense
// reports. Per-row problems are absorbed by the normalizer; the only hard
// failure is a workbook that cannot be opened at all.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"notaspese/internal/core"
)

// ErrImportFailed is the operator-facing failure for an unreadable statement
// file. The message names the expected column contract verbatim.
var ErrImportFailed = errors.New(
	"Import failed. File must have columns: Data operazione, Carta, Descrizione, Importo in euro.")

// Column contract of the bank export. Header matching is exact: case and
// wording sensitive. Any other column is ignored.
const (
	colDate     = "Data operazione"
	colCard     = "Carta"
	colMovement = "Descrizione"
	colAmount   = "Importo in euro"
)

// ParseStatement reads the first sheet of an xlsx statement and returns one
// canonical row per data line, in file order. Missing cells default to empty
// string or zero; a cell never aborts the import.
func ParseStatement(r io.Reader) ([]core.ExpenseRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrImportFailed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportFailed
	}
	lines, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrImportFailed, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header := lines[0]
	dateCol := indexOf(header, colDate)
	cardCol := indexOf(header, colCard)
	movementCol := indexOf(header, colMovement)
	amountCol := indexOf(header, colAmount)

	batch := time.Now().UnixMilli()
	var rows []core.ExpenseRow
	for i, line := range lines[1:] {
		rows = append(rows, core.ExpenseRow{
			ID:        fmt.Sprintf("%d-%d", batch, i),
			Date:      parseDateCell(cellAt(line, dateCol)),
			CardLabel: cellAt(line, cardCol),
			Movement:  cellAt(line, movementCol),
			Amount:    core.ParseAmount(cellAt(line, amountCol)),
		})
	}
	return rows, nil
}

// BuildDraftReport wraps ingested rows into a complete, uncommitted report.
// The month key comes from the operator's explicit month input when given,
// otherwise from the first row's date, otherwise from the import instant.
// It is fixed here once and never derived again.
func BuildDraftReport(rows []core.ExpenseRow, monthInput string, now time.Time) core.ExpenseReport {
	now = now.UTC()
	reportDate := now
	if len(rows) > 0 && !rows[0].Date.IsZero() {
		reportDate = rows[0].Date
	}
	monthKey := strings.TrimSpace(monthInput)
	if monthKey == "" {
		monthKey = core.MonthKeyFromDate(reportDate)
	}
	monthLabel := core.MonthLabelFromKey(monthKey)
	if monthLabel == "" {
		monthLabel = core.MonthLabelFromDate(reportDate)
	}
	return core.ExpenseReport{
		ID:         strconv.FormatInt(now.UnixMilli(), 10),
		CreatedAt:  now,
		MonthKey:   monthKey,
		MonthLabel: monthLabel,
		Rows:       rows,
	}
}

// parseDateCell feeds numeric-looking cells to the serial branch of the
// normalizer; unformatted xlsx date cells surface as day-serial strings.
func parseDateCell(cell string) time.Time {
	trimmed := strings.TrimSpace(cell)
	if trimmed != "" {
		if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return core.ParseDate(serial)
		}
	}
	return core.ParseDate(cell)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// cellAt tolerates both ignored columns (-1) and the short lines excelize
// produces when trailing cells are empty.
func cellAt(line []string, i int) string {
	if i < 0 || i >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[i])
}
