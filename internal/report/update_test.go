package report

import (
	"errors"
	"testing"

	"notaspese/internal/core"
)

func TestUpdateRowCopyOnWrite(t *testing.T) {
	original := []core.ExpenseReport{testReport("r1", "2024-03", "-10.00")}
	rowID := original[0].Rows[0].ID

	updated, err := UpdateRow(original, "r1", rowID, func(row core.ExpenseRow) core.ExpenseRow {
		row.Category = "VITTO"
		row.DetailDescription = "pranzo per 3 persone"
		return row
	})
	if err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}

	if updated[0].Rows[0].Category != "VITTO" {
		t.Fatalf("row not updated: %+v", updated[0].Rows[0])
	}
	// The previous snapshot must be untouched.
	if original[0].Rows[0].Category != "" || original[0].Rows[0].DetailDescription != "" {
		t.Fatalf("original snapshot mutated: %+v", original[0].Rows[0])
	}
}

func TestUpdateRowClosedReport(t *testing.T) {
	reports := []core.ExpenseReport{testReport("r1", "2024-03", "-10.00")}
	reports[0].Closed = true

	_, err := UpdateRow(reports, "r1", reports[0].Rows[0].ID, func(row core.ExpenseRow) core.ExpenseRow {
		row.Category = "VITTO"
		return row
	})
	if !errors.Is(err, ErrReportClosed) {
		t.Fatalf("expected ErrReportClosed, got %v", err)
	}
}

func TestUpdateRowMissingIDs(t *testing.T) {
	reports := []core.ExpenseReport{testReport("r1", "2024-03", "-10.00")}

	if _, err := UpdateRow(reports, "nope", "x", nil); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("missing report: %v", err)
	}
	_, err := UpdateRow(reports, "r1", "nope", func(row core.ExpenseRow) core.ExpenseRow { return row })
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("missing row: %v", err)
	}
}

func TestCloseAndDeleteReport(t *testing.T) {
	reports := []core.ExpenseReport{
		testReport("r1", "2024-03", "-10.00"),
		testReport("r2", "2024-04", "-20.00"),
	}

	closed, err := CloseReport(reports, "r2")
	if err != nil {
		t.Fatalf("CloseReport: %v", err)
	}
	if !closed[1].Closed || reports[1].Closed {
		t.Fatalf("close not copy-on-write")
	}

	remaining, err := DeleteReport(reports, "r1")
	if err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "r2" {
		t.Fatalf("delete result: %+v", remaining)
	}
	if _, err := DeleteReport(reports, "nope"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestPrependKeepsMostRecentFirst(t *testing.T) {
	reports := []core.ExpenseReport{testReport("old", "2024-02", "-1.00")}
	got := Prepend(reports, testReport("new", "2024-03", "-2.00"))
	if got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("order after prepend: %s, %s", got[0].ID, got[1].ID)
	}
}
