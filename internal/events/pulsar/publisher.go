package pulsar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/toolsascode/ccm/internal/events"
	"github.com/toolsascode/ccm/internal/logger"
)

// Publisher implements events.Publisher using Pulsar
type Publisher struct {
	client   pulsar.Client
	producer pulsar.Producer
	topic    string
}

// NewPublisher creates a new Pulsar publisher
func NewPublisher(url, topic string) (*Publisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Pulsar producer: %w", err)
	}

	return &Publisher{
		client:   client,
		producer: producer,
		topic:    topic,
	}, nil
}

// Publish publishes a lifecycle event to Pulsar, keyed by operation id
func (p *Publisher) Publish(ctx context.Context, event *events.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &pulsar.ProducerMessage{
		Payload: eventData,
		Key:     event.OperationID,
		Properties: map[string]string{
			"operation-id": event.OperationID,
			"event-type":   event.Type,
		},
	}

	if _, err := p.producer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Pulsar: %w", err)
	}

	logger.Debugf("Published %s event for operation %s to Pulsar topic %s", event.Type, event.OperationID, p.topic)
	return nil
}

// Close closes the Pulsar publisher
func (p *Publisher) Close() error {
	p.producer.Close()
	p.client.Close()
	return nil
}
