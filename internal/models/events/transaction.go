package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeTransactionRecorded = "transaction.recorded"
	TypeTransactionDeleted  = "transaction.deleted"
)

// TransactionEvent is emitted after a ledger mutation commits.
type TransactionEvent struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	TransactionID  int64           `json:"transaction_id"`
	UserIdentifier string          `json:"user_identifier"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
