package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"-45,50", "-45.5"},
		{"1.234,56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"12,34 €", "12.34"},
		{"€ 12,34", "12.34"},
		{" 2,50 ", "2.5"},
		{"100", "100"},
		{"0", "0"},
		{"", "0"},
		{"abc", "0"},
		{"12,34,56", "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		want, _ := decimal.NewFromString(tc.out)
		if !got.Equal(want) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

// Parsing its own formatted output must be a fixed point.
func TestParseAmountFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"-45,50", "1.234,56", "0", "999999,99", "-0,01", "garbage"} {
		once := ParseAmount(raw)
		again := ParseAmount(FormatAmount(once))
		if !once.Equal(again) {
			t.Fatalf("round trip for %q: %s != %s", raw, once, again)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"-45.5", "-45,50 €"},
		{"1234.56", "1.234,56 €"},
		{"1234567.89", "1.234.567,89 €"},
		{"0", "0,00 €"},
		{"-0.01", "-0,01 €"},
	}
	for _, tc := range cases {
		d, _ := decimal.NewFromString(tc.in)
		if got := FormatAmount(d); got != tc.out {
			t.Fatalf("FormatAmount(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestParseDateBranches(t *testing.T) {
	fixed := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if got := ParseDate(fixed); !got.Equal(fixed) {
		t.Fatalf("time passthrough: got %v", got)
	}

	// Day-first slash dates, four- and two-digit years.
	if got := ParseDate("05/03/2024"); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("slash date: got %v", got)
	}
	if got := ParseDate("5/3/24"); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("two-digit year: got %v", got)
	}

	// Spreadsheet day serial: 45356 days after 1899-12-30 is 2024-03-05.
	if got := ParseDate(45356.0); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("serial: got %v", got)
	}
	if got := ParseDate(1); !got.Equal(time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("serial 1: got %v", got)
	}

	if got := ParseDate("2024-03-05"); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("iso date: got %v", got)
	}
	if got := ParseDate("2024-03-05T12:30:00Z"); !got.Equal(time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: got %v", got)
	}
}

// ParseDate is total: any input yields a valid instant.
func TestParseDateNeverFails(t *testing.T) {
	inputs := []any{nil, "", "   ", "not a date", "99/99/9999", -42.0, -1e12, 1e12,
		"32/13/20x4", time.Time{}, struct{}{}, 45356.25}
	for _, in := range inputs {
		got := ParseDate(in)
		if got.IsZero() {
			t.Fatalf("ParseDate(%v) returned zero instant", in)
		}
		if got.Location() != time.UTC {
			t.Fatalf("ParseDate(%v) not UTC", in)
		}
	}
}

func TestMonthHelpers(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := MonthKeyFromDate(d); got != "2024-03" {
		t.Fatalf("MonthKeyFromDate = %q", got)
	}
	if got := MonthLabelFromKey("2024-03"); got != "marzo 2024" {
		t.Fatalf("MonthLabelFromKey = %q", got)
	}
	if got := MonthLabelFromKey("garbage"); got != "" {
		t.Fatalf("invalid key label = %q", got)
	}
	if got := MonthStartLabel("2024-03"); got != "01/03/2024" {
		t.Fatalf("MonthStartLabel = %q", got)
	}
	if got := MonthStartLabel("all"); got != "-" {
		t.Fatalf("MonthStartLabel(all) = %q", got)
	}
}

func TestNormalizeReportIdempotent(t *testing.T) {
	r := ExpenseReport{
		ID:        "1700000000000",
		CreatedAt: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
		Rows: []ExpenseRow{
			{ID: "a", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromFloat(-45.5)},
			{ID: "b", Amount: decimal.Zero}, // zero date gets coerced
		},
	}
	once := NormalizeReport(r)
	twice := NormalizeReport(once)

	if once.MonthKey != "2024-03" {
		t.Fatalf("month key from first row: got %q", once.MonthKey)
	}
	if once.MonthLabel != "marzo 2024" {
		t.Fatalf("month label: got %q", once.MonthLabel)
	}
	if twice.MonthKey != once.MonthKey || twice.MonthLabel != once.MonthLabel {
		t.Fatalf("derived fields changed on re-normalize")
	}
	for i := range once.Rows {
		if !twice.Rows[i].Date.Equal(once.Rows[i].Date) {
			t.Fatalf("row %d date changed on re-normalize", i)
		}
		if !twice.Rows[i].Amount.Equal(once.Rows[i].Amount) {
			t.Fatalf("row %d amount changed on re-normalize", i)
		}
	}
}

// MonthKey fixed at creation must survive normalization even when row dates
// disagree.
func TestNormalizeReportKeepsMonthKey(t *testing.T) {
	r := ExpenseReport{
		ID:       "x",
		MonthKey: "2024-01",
		Rows: []ExpenseRow{
			{ID: "a", Date: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		},
	}
	got := NormalizeReport(r)
	if got.MonthKey != "2024-01" {
		t.Fatalf("month key rewritten to %q", got.MonthKey)
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory("") || !ValidCategory("VITTO") {
		t.Fatal("expected empty and known categories to validate")
	}
	if ValidCategory("GITA FUORI PORTA") {
		t.Fatal("unknown category validated")
	}
}
