package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations over account holders.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, identifier string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUser applies the non-nil fields of patch. The balance is not patchable.
	UpdateUser(ctx context.Context, identifier string, patch models.UserPatch) (models.User, error)
	// DeleteUser removes the user's transactions and then the user, as one unit.
	DeleteUser(ctx context.Context, identifier string) error
	HasAdmin(ctx context.Context) (bool, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// LedgerStore captures persistence operations over transactions.
type LedgerStore interface {
	// WithOwner runs fn in a single unit of work that holds the write lock on
	// the owner's row. A non-nil error from fn rolls every write back.
	// Unknown owners yield ErrNotFound without calling fn.
	WithOwner(ctx context.Context, identifier string, fn func(tx LedgerTx) error) error
	// ListTransactions orders by date, then creation time, then id, all descending.
	ListTransactions(ctx context.Context, identifier string) ([]models.Transaction, error)
}

// LedgerTx is the owner-scoped view handed to WithOwner callbacks.
type LedgerTx interface {
	Owner() models.User
	InsertTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error)
	FindTransaction(ctx context.Context, id int64) (models.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	Transactions(ctx context.Context) ([]models.Transaction, error)
	SetBalance(ctx context.Context, balance decimal.Decimal) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	LedgerStore
	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
	Close()
}
