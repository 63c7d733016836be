package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// DefaultIcon is shown next to transactions recorded without one.
const DefaultIcon = "💰"

// Transaction is one ledger line. Amount is always positive; Kind carries the sign.
type Transaction struct {
	ID             int64           `json:"id"`
	UserIdentifier string          `json:"user_identifier"`
	Kind           string          `json:"type"`
	Title          string          `json:"title"`
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	Icon           string          `json:"icon"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ValidKind reports whether kind is income or expense.
func ValidKind(kind string) bool {
	return kind == KindIncome || kind == KindExpense
}

// Signed returns the amount with the sign implied by the kind.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == KindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
