// Package messaging holds EventBus adapters.
package messaging

import (
	"context"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/events"
)

// LogPublisher writes domain events to the log. It is the event bus used
// when no EventBridge bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

var _ ports.EventBus = (*LogPublisher)(nil)

// NewLogPublisher creates a log-backed event bus
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Domain event",
		zap.String("event_type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		_ = p.Publish(ctx, event)
	}
	return nil
}
