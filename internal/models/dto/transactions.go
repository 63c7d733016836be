package dto

import "github.com/shopspring/decimal"

type CreateTransactionRequest struct {
	UserIdentifier string          `json:"user_identifier"`
	UserCPF        string          `json:"userCPF"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	Icon           string          `json:"icon"`
}

type ReconcileResponse struct {
	Previous decimal.Decimal `json:"previous_balance"`
	Balance  decimal.Decimal `json:"balance"`
	Drift    decimal.Decimal `json:"drift"`
}
