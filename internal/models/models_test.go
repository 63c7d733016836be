package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"123.000.123-00": "12300012300",
		" 123 456 ":      "123456",
		"abc":            "",
		"":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeIdentifier(in), "input %q", in)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", got)

	got, err = ParseDate("09/03/2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", got)

	_, err = ParseDate("2024-13-40")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Kind: KindIncome, Amount: decimal.NewFromInt(100)}
	out := Transaction{Kind: KindExpense, Amount: decimal.NewFromInt(30)}
	assert.True(t, in.Signed().Equal(decimal.NewFromInt(100)))
	assert.True(t, out.Signed().Equal(decimal.NewFromInt(-30)))
}

func TestUserPatchEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.Empty())
	name := "x"
	assert.False(t, UserPatch{Name: &name}.Empty())
}
