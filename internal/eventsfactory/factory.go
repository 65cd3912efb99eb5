// Package eventsfactory constructs the configured lifecycle event publisher.
// It lives outside internal/events so the publisher implementations can
// import the events package without a cycle.
package eventsfactory

import (
	"fmt"
	"strings"

	"github.com/toolsascode/ccm/internal/config"
	"github.com/toolsascode/ccm/internal/events"
	"github.com/toolsascode/ccm/internal/events/kafka"
	"github.com/toolsascode/ccm/internal/events/pulsar"
)

// NewPublisher creates the publisher selected by configuration. It returns
// (nil, nil) when event publishing is disabled.
func NewPublisher(cfg *config.Config) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}

	publisherType := strings.ToLower(cfg.Events.Type)
	if publisherType == "" {
		publisherType = "kafka" // Default to Kafka
	}

	switch publisherType {
	case "kafka":
		if len(cfg.Events.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
		if cfg.Events.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka topic is required")
		}
		return kafka.NewPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic), nil

	case "pulsar":
		if cfg.Events.PulsarURL == "" {
			return nil, fmt.Errorf("pulsar URL is required")
		}
		if cfg.Events.PulsarTopic == "" {
			return nil, fmt.Errorf("pulsar topic is required")
		}
		return pulsar.NewPublisher(cfg.Events.PulsarURL, cfg.Events.PulsarTopic)

	default:
		return nil, fmt.Errorf("unsupported events type: %s (supported: kafka, pulsar)", cfg.Events.Type)
	}
}
