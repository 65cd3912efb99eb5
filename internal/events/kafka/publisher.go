package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/toolsascode/ccm/internal/events"
	"github.com/toolsascode/ccm/internal/logger"
)

// Publisher implements events.Publisher using Kafka
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		topic:  topic,
	}
}

// Publish publishes a lifecycle event to Kafka, keyed by operation id
func (p *Publisher) Publish(ctx context.Context, event *events.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.OperationID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "operation-id", Value: []byte(event.OperationID)},
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logger.Debugf("Published %s event for operation %s to Kafka topic %s", event.Type, event.OperationID, p.topic)
	return nil
}

// Close closes the Kafka publisher
func (p *Publisher) Close() error {
	return p.writer.Close()
}
