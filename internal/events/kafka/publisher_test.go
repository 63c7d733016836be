package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/bank-ledger-be/internal/models/events"
)

func TestMessageKeyedByAccount(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	event := events.TransactionEvent{
		ID:             "evt-1",
		Type:           events.TypeTransactionRecorded,
		TransactionID:  7,
		UserIdentifier: "12345678900",
		Kind:           "income",
		Amount:         decimal.NewFromInt(100),
		Balance:        decimal.NewFromInt(250),
		OccurredAt:     at,
	}

	msg, err := message(event)
	require.NoError(t, err)
	assert.Equal(t, "12345678900", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, events.TypeTransactionRecorded, string(msg.Headers[0].Value))

	var decoded events.TransactionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(7), decoded.TransactionID)
	assert.True(t, decoded.Balance.Equal(decimal.NewFromInt(250)))
}
