package events

import (
	"context"

	"github.com/hongminglow/bank-ledger-be/internal/models/events"
)

// Publisher delivers ledger events after the mutation that produced them commits.
type Publisher interface {
	Publish(ctx context.Context, event events.TransactionEvent) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, events.TransactionEvent) error { return nil }

func (Noop) Close() error { return nil }
