package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// Emitter is the side-channel the ledger core publishes notifications to.
type Emitter interface {
	Emit(ctx context.Context, ev LedgerEvent) error
}

// KafkaEmitter publishes ledger events to the configured topic.
type KafkaEmitter struct {
	writer *kafka.Writer
}

func NewKafkaEmitter(writer *kafka.Writer) *KafkaEmitter {
	return &KafkaEmitter{writer: writer}
}

func (e *KafkaEmitter) Emit(ctx context.Context, ev LedgerEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Type),
		Value: value,
	})
	if err != nil {
		log.Printf("⚠️ Kafka emit failed for %s: %v", ev.Type, err)
	}
	return err
}

// NopEmitter drops every notification. Used when Kafka is not configured.
type NopEmitter struct{}

func (NopEmitter) Emit(ctx context.Context, ev LedgerEvent) error { return nil }
