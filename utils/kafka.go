package utils

import (
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/sharath018/event-escrow-backend/config"
)

var kafkaWriter *kafka.Writer

// InitializeKafka sets up the shared producer for the ledger topic.
func InitializeKafka(cfg *config.Config) {
	kafkaWriter = &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.KafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("✅ Kafka producer ready (topic %s)", cfg.KafkaTopic)
}

// KafkaWriter returns the shared producer; nil when Kafka is disabled.
func KafkaWriter() *kafka.Writer {
	return kafkaWriter
}

// NewKafkaReader builds a consumer for the ledger topic.
func NewKafkaReader(cfg *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
