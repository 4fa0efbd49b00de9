package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/segmentio/kafka-go"
)

// StartKafkaConsumer runs a background loop that turns published ledger
// events into in-app notifications. Malformed messages are logged and
// skipped; the loop ends when the reader is closed.
func StartKafkaConsumer(svc Service, reader *kafka.Reader) {
	go func() {
		log.Println("✅ Notification Kafka consumer started")
		for {
			msg, err := reader.ReadMessage(context.Background())
			if err != nil {
				if errors.Is(err, io.EOF) {
					log.Println("Notification Kafka consumer stopped")
					return
				}
				log.Printf("⚠️ Kafka read failed: %v", err)
				continue
			}

			var ev LedgerEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				log.Printf("⚠️ Skipping malformed ledger event: %v", err)
				continue
			}

			if err := svc.HandleLedgerEvent(context.Background(), ev); err != nil {
				log.Printf("⚠️ Failed to store notification for %s: %v", ev.Type, err)
			}
		}
	}()
}
