package report

import (
	"errors"

	"notaspese/internal/core"
)

var (
	// ErrReportNotFound is returned when a report id does not exist in the
	// history slice.
	ErrReportNotFound = errors.New("report not found")
	// ErrRowNotFound is returned when a row id does not exist in the report.
	ErrRowNotFound = errors.New("row not found")
	// ErrReportClosed rejects categorization edits on a closed report.
	ErrReportClosed = errors.New("report is closed")
)

// The update operations below are copy-on-write over the card's report
// history: they return a new slice with fresh report and row values for the
// touched entries, so callers holding the previous snapshot never observe
// partial mutation.

// UpdateReport applies fn to the report with the given id and returns a new
// history slice.
func UpdateReport(reports []core.ExpenseReport, reportID string, fn func(core.ExpenseReport) core.ExpenseReport) ([]core.ExpenseReport, error) {
	found := false
	out := make([]core.ExpenseReport, len(reports))
	for i, r := range reports {
		if r.ID == reportID {
			found = true
			r = fn(cloneReport(r))
		}
		out[i] = r
	}
	if !found {
		return nil, ErrReportNotFound
	}
	return out, nil
}

// UpdateRow applies fn to one row inside one report and returns a new history
// slice. Closed reports reject edits.
func UpdateRow(reports []core.ExpenseReport, reportID, rowID string, fn func(core.ExpenseRow) core.ExpenseRow) ([]core.ExpenseReport, error) {
	var rowErr error
	out, err := UpdateReport(reports, reportID, func(r core.ExpenseReport) core.ExpenseReport {
		if r.Closed {
			rowErr = ErrReportClosed
			return r
		}
		rowErr = ErrRowNotFound
		for i, row := range r.Rows {
			if row.ID == rowID {
				r.Rows[i] = fn(row)
				rowErr = nil
				break
			}
		}
		return r
	})
	if err != nil {
		return nil, err
	}
	if rowErr != nil {
		return nil, rowErr
	}
	return out, nil
}

// CloseReport locks a report against further categorization edits.
func CloseReport(reports []core.ExpenseReport, reportID string) ([]core.ExpenseReport, error) {
	return UpdateReport(reports, reportID, func(r core.ExpenseReport) core.ExpenseReport {
		r.Closed = true
		return r
	})
}

// DeleteReport removes one report from the history. Rows are never deleted
// individually, only as part of their report.
func DeleteReport(reports []core.ExpenseReport, reportID string) ([]core.ExpenseReport, error) {
	found := false
	out := make([]core.ExpenseReport, 0, len(reports))
	for _, r := range reports {
		if r.ID == reportID {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		return nil, ErrReportNotFound
	}
	return out, nil
}

// Prepend puts a freshly committed report at the head of the history,
// keeping most-recent-commit-first order.
func Prepend(reports []core.ExpenseReport, r core.ExpenseReport) []core.ExpenseReport {
	out := make([]core.ExpenseReport, 0, len(reports)+1)
	out = append(out, r)
	out = append(out, reports...)
	return out
}

func cloneReport(r core.ExpenseReport) core.ExpenseReport {
	rows := make([]core.ExpenseRow, len(r.Rows))
	copy(rows, r.Rows)
	r.Rows = rows
	return r
}
