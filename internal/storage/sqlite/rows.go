package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/models"
)

// Amounts are stored as TEXT so decimals round-trip exactly.

type userRow struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	Identifier    string          `gorm:"column:identifier"`
	Name          string          `gorm:"column:name"`
	PasswordHash  string          `gorm:"column:password_hash"`
	Balance       decimal.Decimal `gorm:"column:balance"`
	AccountNumber *string         `gorm:"column:account_number"`
	Role          string          `gorm:"column:role"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) model() models.User {
	return models.User{
		ID:            r.ID,
		Identifier:    r.Identifier,
		Name:          r.Name,
		PasswordHash:  r.PasswordHash,
		Balance:       r.Balance,
		AccountNumber: r.AccountNumber,
		Role:          r.Role,
		CreatedAt:     r.CreatedAt,
	}
}

type transactionRow struct {
	ID             int64           `gorm:"column:id;primaryKey"`
	UserIdentifier string          `gorm:"column:user_identifier"`
	Type           string          `gorm:"column:type"`
	Title          string          `gorm:"column:title"`
	Amount         decimal.Decimal `gorm:"column:amount"`
	Date           string          `gorm:"column:date"`
	Icon           string          `gorm:"column:icon"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
}

func (transactionRow) TableName() string { return "transactions" }

func (r transactionRow) model() models.Transaction {
	return models.Transaction{
		ID:             r.ID,
		UserIdentifier: r.UserIdentifier,
		Kind:           r.Type,
		Title:          r.Title,
		Amount:         r.Amount,
		Date:           r.Date,
		Icon:           r.Icon,
		CreatedAt:      r.CreatedAt,
	}
}

type migrationRow struct {
	Version   int       `gorm:"column:version;primaryKey"`
	Name      string    `gorm:"column:name"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (migrationRow) TableName() string { return "schema_migrations" }
