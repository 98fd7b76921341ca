package app

import (
	"ridedispatch/internal/config"
	"ridedispatch/internal/events"
)

// NewPublisher returns a RabbitMQ publisher, or a no-op publisher when no
// broker URL is configured.
func NewPublisher(cfg config.RabbitMQConfig) (events.Publisher, error) {
	if cfg.URL == "" {
		return events.NoopPublisher{}, nil
	}
	return events.NewRabbitPublisher(cfg.URL, cfg.Exchange)
}
