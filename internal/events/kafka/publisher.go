package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hongminglow/bank-ledger-be/internal/models/events"
)

// Publisher writes ledger events to a Kafka topic, keyed by account identifier
// so one account's events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.TransactionEvent) error {
	msg, err := message(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func message(event events.TransactionEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.UserIdentifier),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}, nil
}
