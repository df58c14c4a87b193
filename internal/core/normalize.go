// Package core holds the canonical expense model and the amount/date
// normalizer.
//
// Imported statements are inconsistently formatted across banks and export
// tools, so both parsers are total: they never fail, they downgrade bad input
// to a safe default (zero amount, current instant) and let the operator catch
// anomalies in the rendered table.
package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// statement exports use the Italian convention: "." for thousands, "," for
// decimals, optional euro sign.
var slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)

// ParseAmount converts a locale-formatted amount string into a decimal.
// Currency symbols and whitespace are stripped, "." is treated as a thousands
// separator and "," as the decimal separator. Empty or unparsable input
// yields zero, never an error.
func ParseAmount(raw string) decimal.Decimal {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '€':
			return -1
		case r == ' ' || r == '\t' || r == ' ':
			return -1
		}
		return r
	}, raw)
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders a decimal in the it-IT currency convention,
// e.g. -1234.5 -> "-1.234,50 €". Display only, never persisted.
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	b.WriteString(" €")
	return b.String()
}

// excelEpoch is the spreadsheet day-serial origin (the Lotus 1-2-3
// convention, with its historical leap-year quirk already folded in).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDays keeps serial conversion inside a sane calendar range;
// anything beyond falls back to the current instant.
const maxSerialDays = 100000

// ParseDate converts heterogeneous raw date values into a UTC instant.
// Branches, in order: an existing time value is used directly; absent or
// empty input yields the current instant; a number is a day-count serial
// from the 1899-12-30 epoch; text is matched day-first against D/M/YYYY or
// D/M/YY (two-digit years map to 2000+YY), then against common date layouts.
// When everything fails the current instant is returned: ingestion never
// aborts over one malformed cell.
func ParseDate(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Now().UTC()
		}
		return v.UTC()
	case nil:
		return time.Now().UTC()
	case float64:
		return serialDate(v)
	case float32:
		return serialDate(float64(v))
	case int:
		return serialDate(float64(v))
	case int64:
		return serialDate(float64(v))
	case string:
		return parseDateText(v)
	}
	return time.Now().UTC()
}

func serialDate(days float64) time.Time {
	if days < -maxSerialDays || days > maxSerialDays {
		return time.Now().UTC()
	}
	return excelEpoch.Add(time.Duration(days * 86400 * float64(time.Second)))
}

// textLayouts are tried after the day-first slash pattern.
var textLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
}

func parseDateText(raw string) time.Time {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Now().UTC()
	}
	if m := slashDate.FindStringSubmatch(text); m != nil {
		day := atoi(m[1])
		month := atoi(m[2])
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// atoi on digit-only input pre-validated by the slash pattern.
func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// FormatDate renders a date as dd/mm/yyyy for display. Zero dates render
// as "-".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("02/01/2006")
}

var italianMonths = []string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// MonthKeyFromDate derives the canonical YYYY-MM grouping key.
func MonthKeyFromDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01")
}

// MonthLabelFromKey renders a month key as an Italian display label,
// e.g. "2024-03" -> "marzo 2024". Invalid keys yield "".
func MonthLabelFromKey(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return ""
	}
	return italianMonths[int(t.Month())-1] + " " + t.Format("2006")
}

// MonthLabelFromDate renders the month label for a date.
func MonthLabelFromDate(t time.Time) string {
	if t.IsZero() {
		return "mese non valido"
	}
	return MonthLabelFromKey(MonthKeyFromDate(t))
}

// MonthStartLabel renders the first day of a month key as dd/mm/yyyy,
// used for the opening balance caption. "all" and "" yield "-".
func MonthStartLabel(key string) string {
	if key == "" || key == "all" {
		return "-"
	}
	year, month, ok := strings.Cut(key, "-")
	if !ok || year == "" || month == "" {
		return "-"
	}
	return "01/" + month + "/" + year
}

// NormalizeRow coerces a row's date into a resolvable UTC instant. Amounts
// are already finite by construction of the decimal type.
func NormalizeRow(row ExpenseRow) ExpenseRow {
	row.Date = ParseDate(row.Date)
	return row
}

// NormalizeReport fills derived fields and coerces row values. It is
// idempotent: re-normalizing an already-normalized report is a no-op. The
// month key is only derived when missing; once set it stays stable for the
// report's lifetime.
func NormalizeReport(r ExpenseReport) ExpenseReport {
	rows := make([]ExpenseRow, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = NormalizeRow(row)
	}
	r.Rows = rows

	fallback := r.CreatedAt
	if len(rows) > 0 {
		fallback = rows[0].Date
	}
	if fallback.IsZero() {
		fallback = time.Now().UTC()
	}
	if r.MonthKey == "" {
		r.MonthKey = MonthKeyFromDate(fallback)
	}
	if r.MonthLabel == "" {
		r.MonthLabel = MonthLabelFromKey(r.MonthKey)
		if r.MonthLabel == "" {
			r.MonthLabel = MonthLabelFromDate(fallback)
		}
	}
	return r
}

// NormalizeReports normalizes a whole history slice.
func NormalizeReports(reports []ExpenseReport) []ExpenseReport {
	out := make([]ExpenseReport, len(reports))
	for i, r := range reports {
		out[i] = NormalizeReport(r)
	}
	return out
}
