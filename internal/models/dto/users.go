package dto

import "github.com/shopspring/decimal"

type CreateUserRequest struct {
	Identifier     string           `json:"identifier"`
	CPF            string           `json:"cpf"`
	Name           string           `json:"name"`
	Password       string           `json:"password"`
	AccountNumber  *string          `json:"account_number"`
	Role           string           `json:"role"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
}

// UpdateUserRequest fields are optional; only the ones present are applied.
type UpdateUserRequest struct {
	Name          *string `json:"name"`
	Password      *string `json:"password"`
	AccountNumber *string `json:"account_number"`
	Role          *string `json:"role"`
}
