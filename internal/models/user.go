package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User captures an account holder identified by a national ID number.
type User struct {
	ID            int64           `json:"id"`
	Identifier    string          `json:"identifier"`
	Name          string          `json:"name"`
	PasswordHash  string          `json:"-"`
	Balance       decimal.Decimal `json:"balance"`
	AccountNumber *string         `json:"account_number"`
	Role          string          `json:"role"`
	CreatedAt     time.Time       `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserPatch carries the fields of a partial user update. Nil fields are left
// untouched; an AccountNumber of "" clears the stored value.
type UserPatch struct {
	Name          *string
	PasswordHash  *string
	AccountNumber *string
	Role          *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.PasswordHash == nil && p.AccountNumber == nil && p.Role == nil
}

// Stats aggregates figures shown on the admin dashboard.
type Stats struct {
	TotalUsers        int64           `json:"totalUsers"`
	TotalBalance      decimal.Decimal `json:"totalBalance"`
	TotalTransactions int64           `json:"totalTransactions"`
}
