package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

func seed(t *testing.T, s *Store, identifier string) models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), models.User{Identifier: identifier, Name: "Ana", PasswordHash: "h", Role: models.RoleUser})
	require.NoError(t, err)
	return user
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	s := NewStore()
	seed(t, s, "111")

	_, err := s.CreateUser(context.Background(), models.User{Identifier: "111", Name: "Other"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUpdateUserClearsAccountNumber(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "111")

	account, cleared := "0001-2", ""
	updated, err := s.UpdateUser(ctx, "111", models.UserPatch{AccountNumber: &account})
	require.NoError(t, err)
	require.NotNil(t, updated.AccountNumber)
	assert.Equal(t, account, *updated.AccountNumber)

	updated, err = s.UpdateUser(ctx, "111", models.UserPatch{AccountNumber: &cleared})
	require.NoError(t, err)
	assert.Nil(t, updated.AccountNumber)
}

func TestWithOwnerRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "111")

	boom := errors.New("boom")
	err := s.WithOwner(ctx, "111", func(tx storage.LedgerTx) error {
		txn, err := tx.InsertTransaction(ctx, models.Transaction{Kind: models.KindIncome, Title: "x", Amount: decimal.NewFromInt(5), Date: "2024-01-01"})
		require.NoError(t, err)
		require.NoError(t, tx.SetBalance(ctx, txn.Amount))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	user, err := s.GetUser(ctx, "111")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero())
	txns, err := s.ListTransactions(ctx, "111")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestWithOwnerUnknownOwner(t *testing.T) {
	called := false
	err := NewStore().WithOwner(context.Background(), "404", func(storage.LedgerTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, called)
}

func TestFindTransactionIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "111")
	seed(t, s, "222")

	var id int64
	require.NoError(t, s.WithOwner(ctx, "111", func(tx storage.LedgerTx) error {
		txn, err := tx.InsertTransaction(ctx, models.Transaction{Kind: models.KindIncome, Title: "x", Amount: decimal.NewFromInt(5), Date: "2024-01-01"})
		id = txn.ID
		return err
	}))

	err := s.WithOwner(ctx, "222", func(tx storage.LedgerTx) error {
		_, err := tx.FindTransaction(ctx, id)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListTransactionsOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "111")

	dates := []string{"2024-01-01", "2024-03-01", "2024-03-01", "2024-02-01"}
	require.NoError(t, s.WithOwner(ctx, "111", func(tx storage.LedgerTx) error {
		for _, d := range dates {
			if _, err := tx.InsertTransaction(ctx, models.Transaction{Kind: models.KindIncome, Title: d, Amount: decimal.NewFromInt(1), Date: d}); err != nil {
				return err
			}
		}
		return nil
	}))

	txns, err := s.ListTransactions(ctx, "111")
	require.NoError(t, err)
	require.Len(t, txns, 4)
	assert.Equal(t, []int64{3, 2, 4, 1}, []int64{txns[0].ID, txns[1].ID, txns[2].ID, txns[3].ID})
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "111")
	require.NoError(t, s.WithOwner(ctx, "111", func(tx storage.LedgerTx) error {
		_, err := tx.InsertTransaction(ctx, models.Transaction{Kind: models.KindIncome, Title: "x", Amount: decimal.NewFromInt(1), Date: "2024-01-01"})
		return err
	}))

	require.NoError(t, s.DeleteUser(ctx, "111"))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalUsers)
	assert.Zero(t, stats.TotalTransactions)
	assert.ErrorIs(t, s.DeleteUser(ctx, "111"), storage.ErrNotFound)
}
