package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

func (s *Store) WithOwner(ctx context.Context, identifier string, fn func(storage.LedgerTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := findUser(tx, identifier)
		if err != nil {
			return err
		}
		return fn(&ledgerTx{db: tx, owner: owner})
	})
}

type ledgerTx struct {
	db    *gorm.DB
	owner models.User
}

func (l *ledgerTx) Owner() models.User {
	return l.owner
}

func (l *ledgerTx) InsertTransaction(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	row := transactionRow{
		UserIdentifier: l.owner.Identifier,
		Type:           txn.Kind,
		Title:          txn.Title,
		Amount:         txn.Amount,
		Date:           txn.Date,
		Icon:           txn.Icon,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return row.model(), nil
}

func (l *ledgerTx) FindTransaction(ctx context.Context, id int64) (models.Transaction, error) {
	var row transactionRow
	err := l.db.WithContext(ctx).Where("id = ? AND user_identifier = ?", id, l.owner.Identifier).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return row.model(), nil
}

func (l *ledgerTx) DeleteTransaction(ctx context.Context, id int64) error {
	result := l.db.WithContext(ctx).Where("id = ? AND user_identifier = ?", id, l.owner.Identifier).Delete(&transactionRow{})
	if result.Error != nil {
		return fmt.Errorf("delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (l *ledgerTx) Transactions(ctx context.Context) ([]models.Transaction, error) {
	return listTransactions(l.db.WithContext(ctx), l.owner.Identifier)
}

func (l *ledgerTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	err := l.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", l.owner.ID).Update("balance", balance).Error
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	l.owner.Balance = balance
	return nil
}
