package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hongminglow/bank-ledger-be/internal/models"
)

func TestWriteTransactions(t *testing.T) {
	user := models.User{Identifier: "111", Name: "Ana", Balance: decimal.NewFromInt(70)}
	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: 2, Kind: models.KindExpense, Title: "groceries", Amount: decimal.NewFromInt(30), Date: "2024-05-02", Icon: "🛒", CreatedAt: at},
		{ID: 1, Kind: models.KindIncome, Title: "salary", Amount: decimal.NewFromInt(100), Date: "2024-05-01", Icon: "💰", CreatedAt: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, user, txns))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, []string{"Name", "Ana"}, rows[0])
	assert.Equal(t, []string{"Balance", "70.00"}, rows[2])
	assert.Equal(t, "Title", rows[4][3])
	assert.Equal(t, []string{"2", "2024-05-02", "expense", "groceries", "-30", "🛒", "2024-05-02 09:30:00"}, rows[5])
	assert.Equal(t, "100", rows[6][4])
	assert.Equal(t, "70", rows[8][4])
	assert.Equal(t, "statement_111.xlsx", Filename(user))
}
