package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategories is the fixed set of categories an operator may assign to a
// row. The empty string means "not yet categorized".
var ExpenseCategories = []string{
	"VITTO",
	"COSTI DI BOLLO",
	"COMMISSIONE SMS",
	"CARBURANTE",
	"PRELIEVO",
	"COMMISSIONI DI PRELIEVO",
	"ACQUISTO MATERIALI",
	"NOLEGGIO MACCHINARI",
}

// ValidCategory reports whether s is an allowed category value.
// The empty string is allowed (uncategorized).
func ValidCategory(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range ExpenseCategories {
		if c == s {
			return true
		}
	}
	return false
}

type (
	// Attachment is a receipt or document tied to a single row. Bytes are
	// whatever the caller resolved; the engine only embeds them in exports.
	Attachment struct {
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
		Bytes    []byte `json:"bytes"`
	}

	// ExpenseRow is one imported financial movement. Date, Amount, CardLabel
	// and Movement are fixed at import time; Category, DetailDescription and
	// Attachment are edited later by the operator.
	ExpenseRow struct {
		ID                string          `json:"id"`
		Date              time.Time       `json:"date"`
		CardLabel         string          `json:"cardLabel"`
		Movement          string          `json:"movement"`
		Amount            decimal.Decimal `json:"amount"`
		Category          string          `json:"category"`
		DetailDescription string          `json:"detailDescription"`
		Attachment        *Attachment     `json:"attachment"`
	}

	// ExpenseReport is one imported statement batch. MonthKey is fixed at
	// creation and never recomputed, even if row dates are edited later.
	ExpenseReport struct {
		ID         string       `json:"id"`
		CreatedAt  time.Time    `json:"createdAt"`
		MonthKey   string       `json:"monthKey"`
		MonthLabel string       `json:"monthLabel"`
		Rows       []ExpenseRow `json:"rows"`
		Closed     bool         `json:"closed"`
	}
)

// IsExpense reports whether the row is an expense (negative amount) as
// opposed to a credit or reload.
func (r ExpenseRow) IsExpense() bool {
	return r.Amount.IsNegative()
}

// HasImageAttachment reports whether the row carries an attachment that can
// be rendered as a picture in exports.
func (r ExpenseRow) HasImageAttachment() bool {
	return r.Attachment != nil && len(r.Attachment.Bytes) > 0 &&
		len(r.Attachment.MimeType) >= 6 && r.Attachment.MimeType[:6] == "image/"
}
