// Package report folds expense reports into monthly views: history summaries,
// month filtering, flattened row views and running balances. Everything is
// recomputed from scratch on demand; datasets are small and correctness under
// edits matters more than recomputation cost.
package report

import (
	"github.com/shopspring/decimal"

	"notaspese/internal/core"
)

// FilterAll selects every report regardless of month.
const FilterAll = "all"

type (
	// MonthlySummary aggregates all reports sharing a month key.
	MonthlySummary struct {
		MonthKey         string          `json:"monthKey"`
		MonthLabel       string          `json:"monthLabel"`
		ReportCount      int             `json:"reports"`
		TotalAmount      decimal.Decimal `json:"total"`
		TotalExpenseOnly decimal.Decimal `json:"expenses"`
	}

	// Row is an expense row annotated with its parent report's month, for
	// presentation and export.
	Row struct {
		core.ExpenseRow
		MonthKey   string `json:"rowMonthKey"`
		MonthLabel string `json:"month"`
	}

	// Totals are the sums over a filtered row view. TotalExpenses only
	// counts negative amounts.
	Totals struct {
		TotalAll      decimal.Decimal `json:"totalAll"`
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
	}
)

// MonthlyHistory groups reports by month key, in first-encounter order of the
// input slice (which is kept most-recent-commit-first). A report with no rows
// still contributes a zero-valued entry so a bad import stays visible.
func MonthlyHistory(reports []core.ExpenseReport) []MonthlySummary {
	var out []MonthlySummary
	index := make(map[string]int)

	for _, r := range reports {
		total := decimal.Zero
		expenses := decimal.Zero
		for _, row := range r.Rows {
			total = total.Add(row.Amount)
			if row.Amount.IsNegative() {
				expenses = expenses.Add(row.Amount)
			}
		}

		if i, ok := index[r.MonthKey]; ok {
			out[i].ReportCount++
			out[i].TotalAmount = out[i].TotalAmount.Add(total)
			out[i].TotalExpenseOnly = out[i].TotalExpenseOnly.Add(expenses)
			continue
		}
		index[r.MonthKey] = len(out)
		out = append(out, MonthlySummary{
			MonthKey:         r.MonthKey,
			MonthLabel:       r.MonthLabel,
			ReportCount:      1,
			TotalAmount:      total,
			TotalExpenseOnly: expenses,
		})
	}
	return out
}

// VisibleReports filters by month key. FilterAll passes everything through
// unchanged, preserving order.
func VisibleReports(reports []core.ExpenseReport, monthKey string) []core.ExpenseReport {
	if monthKey == FilterAll || monthKey == "" {
		return reports
	}
	var out []core.ExpenseReport
	for _, r := range reports {
		if r.MonthKey == monthKey {
			out = append(out, r)
		}
	}
	return out
}

// RowsForFilter flattens the visible reports into one ordered row sequence,
// each row annotated with its parent's month.
func RowsForFilter(reports []core.ExpenseReport, monthKey string) []Row {
	var out []Row
	for _, r := range VisibleReports(reports, monthKey) {
		for _, row := range r.Rows {
			out = append(out, Row{ExpenseRow: row, MonthKey: r.MonthKey, MonthLabel: r.MonthLabel})
		}
	}
	return out
}

// ComputeTotals sums a row view from scratch.
func ComputeTotals(rows []Row) Totals {
	t := Totals{TotalAll: decimal.Zero, TotalExpenses: decimal.Zero}
	for _, row := range rows {
		t.TotalAll = t.TotalAll.Add(row.Amount)
		if row.Amount.IsNegative() {
			t.TotalExpenses = t.TotalExpenses.Add(row.Amount)
		}
	}
	return t
}

// ClosingBalance is the operator-entered opening figure plus the view's total
// movement. Informational only: nothing reconciles it against a ledger.
func ClosingBalance(opening decimal.Decimal, t Totals) decimal.Decimal {
	return opening.Add(t.TotalAll)
}

// ExpensesByCategory groups the view's expense rows (negative amounts) into
// absolute per-category totals, for the expenses-only export. Uncategorized
// rows fall under fallbackName.
func ExpensesByCategory(rows []Row, fallbackName string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, row := range rows {
		if !row.Amount.IsNegative() {
			continue
		}
		key := row.Category
		if key == "" {
			key = fallbackName
		}
		out[key] = out[key].Add(row.Amount.Abs())
	}
	return out
}
