package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/events"
)

// EventBridge limits PutEvents to 10 entries per call.
const batchSize = 10

const (
	maxAttempts = 3
	baseBackoff = 100 * time.Millisecond
)

// API is the subset of the EventBridge client the publisher needs.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements the EventBus port on AWS EventBridge
type Publisher struct {
	client       API
	eventBusName string
	source       string
	logger       *zap.Logger
}

var _ ports.EventBus = (*Publisher)(nil)

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client API, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       events.SourceBackend,
		logger:       logger,
	}
}

// Publish sends a single event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten, retrying entries that failed.
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for i := 0; i < len(domainEvents); i += batchSize {
		end := i + batchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}
		entries := p.entries(domainEvents[i:end])
		if len(entries) == 0 {
			continue
		}
		if err := p.publishWithRetry(ctx, entries); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) entries(domainEvents []events.DomainEvent) []types.PutEventsRequestEntry {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))
	for _, event := range domainEvents {
		data, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.Error(err),
				zap.String("event_type", event.GetEventType()),
			)
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(data)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{fmt.Sprintf("arn:aws:eden::%s", event.GetAggregateID())},
		})
	}
	return entries
}

// publishWithRetry sends entries with exponential backoff. After a partial
// failure only the rejected entries are sent again.
func (p *Publisher) publishWithRetry(ctx context.Context, entries []types.PutEventsRequestEntry) error {
	backoff := baseBackoff
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			p.logger.Warn("Retrying event publication",
				zap.Int("attempt", attempt+1),
				zap.Int("entries", len(entries)),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			lastErr = fmt.Errorf("failed to publish events to EventBridge: %w", err)
			continue
		}
		if result.FailedEntryCount == 0 {
			p.logger.Debug("Events published to EventBridge",
				zap.Int("count", len(entries)),
				zap.String("event_bus", p.eventBusName),
			)
			return nil
		}

		failed := make([]types.PutEventsRequestEntry, 0, result.FailedEntryCount)
		for i, res := range result.Entries {
			if res.ErrorCode != nil && i < len(entries) {
				p.logger.Warn("Event rejected by EventBridge",
					zap.String("event_type", aws.ToString(entries[i].DetailType)),
					zap.String("error_code", aws.ToString(res.ErrorCode)),
					zap.String("error_message", aws.ToString(res.ErrorMessage)),
				)
				failed = append(failed, entries[i])
			}
		}
		entries = failed
		lastErr = fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	return lastErr
}

// NewClient builds an EventBridge client from an AWS configuration.
func NewClient(cfg aws.Config) *eventbridge.Client {
	return eventbridge.NewFromConfig(cfg)
}
