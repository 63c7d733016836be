package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

// WithOwner locks the owner's row with SELECT ... FOR UPDATE for the lifetime
// of a database transaction and commits only if fn succeeds.
func (s *Store) WithOwner(ctx context.Context, identifier string, fn func(storage.LedgerTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE identifier = $1 FOR UPDATE`, identifier)
		owner, err := scanUser(row)
		if err != nil {
			return err
		}
		return fn(&ledgerTx{tx: tx, owner: owner})
	})
}

type ledgerTx struct {
	tx    pgx.Tx
	owner models.User
}

func (l *ledgerTx) Owner() models.User {
	return l.owner
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	query := `
		INSERT INTO transactions (user_identifier, type, title, amount, date, icon)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + transactionColumns
	row := l.tx.QueryRow(ctx, query, l.owner.Identifier, txn.Kind, txn.Title, toNumeric(txn.Amount), txn.Date, txn.Icon)
	created, err := scanTransaction(row)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return created, nil
}

func (l *ledgerTx) FindTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_identifier = $2`
	return scanTransaction(l.tx.QueryRow(ctx, query, id, l.owner.Identifier))
}

func (l *ledgerTx) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := l.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_identifier = $2`, id, l.owner.Identifier)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (l *ledgerTx) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return listTransactions(ctx, l.tx, l.owner.Identifier)
}

func (l *ledgerTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	tag, err := l.tx.Exec(ctx, `UPDATE users SET balance = $1 WHERE id = $2`, toNumeric(balance), l.owner.ID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("update balance: owner row vanished")
	}
	l.owner.Balance = balance
	return nil
}
