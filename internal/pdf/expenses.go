package pdf

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"notaspese/internal/core"
	"notaspese/internal/report"
)

// Expenses export geometry: A4 portrait, two columns.
const (
	expensesBandH  = 56.0
	expensesTableY = 140.0
	expensesHeadH  = 18.0
	expensesRowH   = 18.0
	expensesFont   = 10.0
)

var (
	expensesWidths  = []float64{380, 140}
	expensesHeaders = []string{"Riepilogo verticale sole spese", "Importo"}
)

// ExpensesLinesPerPage is the body line budget of one expenses page.
const ExpensesLinesPerPage = int(A4Height-expensesTableY-expensesHeadH-footerReserve) / int(expensesRowH)

// ExpensesInput is the row view and context for the expenses-only export.
type ExpensesInput struct {
	CardLast4   string
	HolderName  string
	MonthFilter string
	Rows        []report.Row
	Logo        []byte
	GeneratedAt time.Time
}

// ExpensesFileName is the deterministic output name for a card's
// expenses-only export.
func ExpensesFileName(last4 string) string {
	return "sole-spese-" + last4 + ".pdf"
}

type categoryTotal struct {
	name   string
	amount decimal.Decimal // absolute value of the category's expenses
}

// BuildExpenses renders the vertical expenses-only view: one line per
// category with its expense total, largest first, closed by the grand total
// on a highlighted row. Like the summary, once layout has begun a valid
// closed document is always returned.
func BuildExpenses(in ExpensesInput) (out []byte) {
	doc := New()
	defer func() {
		if r := recover(); r != nil {
			finishFooters(doc, in.GeneratedAt)
			out = doc.Bytes()
		}
	}()

	logo := decodeLogo(in.Logo)
	totals := report.ComputeTotals(in.Rows)
	byCategory := report.ExpensesByCategory(in.Rows, "SENZA CATEGORIA")

	sorted := make([]categoryTotal, 0, len(byCategory))
	for name, amount := range byCategory {
		sorted = append(sorted, categoryTotal{name: name, amount: amount})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].amount.Cmp(sorted[j].amount); c != 0 {
			return c > 0
		}
		return sorted[i].name < sorted[j].name
	})

	subtitles := []string{
		"Carta: ****" + in.CardLast4 + " - " + in.HolderName,
		"Filtro mese: " + monthFilterLabel(in.MonthFilter),
		"Totale sole spese: " + core.FormatAmount(totals.TotalExpenses),
	}

	newPage := func(first bool) *Page {
		p := doc.AddPage(A4Width, A4Height)
		drawBand(doc, p, logo, "NS-ITALSEM · Export Sole Spese", expensesBandH)
		if first {
			drawSubtitles(p, subtitles)
		}
		p.FillRect(marginX, expensesTableY, tableWidth(expensesWidths), expensesHeadH,
			bandOrange[0], bandOrange[1], bandOrange[2])
		grid(p, marginX, expensesWidths, expensesTableY+13, expensesFont, textWhite, expensesHeaders)
		return p
	}

	page := newPage(true)
	line := 0
	nextRow := func(highlighted bool, cells []string) {
		if line == ExpensesLinesPerPage {
			page = newPage(false)
			line = 0
		}
		top := expensesTableY + expensesHeadH + float64(line)*expensesRowH
		if highlighted {
			page.FillRect(marginX, top, tableWidth(expensesWidths), expensesRowH,
				highlightPale[0], highlightPale[1], highlightPale[2])
		}
		grid(page, marginX, expensesWidths, top+13, expensesFont, textDark, cells)
		line++
	}

	for _, ct := range sorted {
		nextRow(false, []string{"Totale " + ct.name, core.FormatAmount(ct.amount.Neg())})
	}
	nextRow(true, []string{"GRAN TOTALE SPESE", core.FormatAmount(totals.TotalExpenses)})

	finishFooters(doc, in.GeneratedAt)
	return doc.Bytes()
}
