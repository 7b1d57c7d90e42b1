package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/domain/events"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

const (
	maxUpdateRetries = 3
	retryBaseDelay   = 100 * time.Millisecond
)

// EdgeService keeps item connections symmetric. Every edge change for a user
// happens under that user's lock, and each item write is an optimistic
// update retried on version conflicts, so concurrent pipelines and other
// processes sharing the store cannot lose each other's edges.
type EdgeService struct {
	store   ports.ItemStore
	events  ports.EventBus
	metrics *observability.Collector
	logger  *zap.Logger

	userLocks   map[string]*sync.Mutex
	userLocksMu sync.Mutex
}

// NewEdgeService creates a new edge service
func NewEdgeService(
	store ports.ItemStore,
	eventBus ports.EventBus,
	metrics *observability.Collector,
	logger *zap.Logger,
) *EdgeService {
	return &EdgeService{
		store:     store,
		events:    eventBus,
		metrics:   metrics,
		logger:    logger,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// getUserLock returns the per-user mutex guarding edge writes.
func (s *EdgeService) getUserLock(userID string) *sync.Mutex {
	s.userLocksMu.Lock()
	defer s.userLocksMu.Unlock()

	if lock, ok := s.userLocks[userID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.userLocks[userID] = lock
	return lock
}

// Connect adds an edge between itemID and every id in links, on both
// endpoints. Targets that no longer exist are skipped. It returns the
// updated item and the neighbours whose connections changed.
func (s *EdgeService) Connect(ctx context.Context, userID, itemID string, links ports.LinkResult) (*entities.SavedItem, []*entities.SavedItem, error) {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var changed []*entities.SavedItem
	var linked []string
	for _, targetID := range links.Connections {
		if targetID == itemID {
			continue
		}
		reason := links.Reasons[targetID]
		target, updated, err := s.updateWithRetry(ctx, userID, targetID, func(t *entities.SavedItem) bool {
			return t.AddConnection(itemID, reason)
		})
		if pkgerrors.IsNotFound(err) {
			s.logger.Debug("Skipping edge to missing item",
				zap.String("itemID", itemID),
				zap.String("targetID", targetID),
			)
			continue
		}
		if err != nil {
			return nil, changed, fmt.Errorf("failed to connect %s to %s: %w", targetID, itemID, err)
		}
		linked = append(linked, targetID)
		if updated {
			changed = append(changed, target)
		}
	}

	item, _, err := s.updateWithRetry(ctx, userID, itemID, func(i *entities.SavedItem) bool {
		modified := false
		for _, targetID := range linked {
			if i.AddConnection(targetID, links.Reasons[targetID]) {
				modified = true
			}
		}
		return modified
	})
	if err != nil {
		return nil, changed, fmt.Errorf("failed to record connections on %s: %w", itemID, err)
	}

	if len(linked) > 0 {
		s.metrics.RecordConnections(len(linked))
		s.publish(ctx, events.NewItemsConnected(itemID, userID, linked, time.Now()))
		s.logger.Info("Connected item",
			zap.String("userID", userID),
			zap.String("itemID", itemID),
			zap.Strings("targets", linked),
		)
	}
	return item, changed, nil
}

// Disconnect removes itemID from every item of the user that references it
// and returns the items that changed.
func (s *EdgeService) Disconnect(ctx context.Context, userID, itemID string) ([]*entities.SavedItem, error) {
	lock := s.getUserLock(userID)
	lock.Lock()
	defer lock.Unlock()

	items, err := s.store.GetItemsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var changed []*entities.SavedItem
	for _, other := range items {
		if other.ID == itemID || !other.HasConnection(itemID) {
			continue
		}
		updated, modified, err := s.updateWithRetry(ctx, userID, other.ID, func(o *entities.SavedItem) bool {
			return o.RemoveConnection(itemID)
		})
		if pkgerrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return changed, fmt.Errorf("failed to disconnect %s from %s: %w", other.ID, itemID, err)
		}
		if modified {
			changed = append(changed, updated)
		}
	}
	return changed, nil
}

// updateWithRetry performs an optimistic update with automatic retry logic.
// It fetches the latest version of the item, applies mutate, and retries on
// version conflicts. mutate reports whether it changed anything; unchanged
// items are not written.
func (s *EdgeService) updateWithRetry(
	ctx context.Context,
	userID, itemID string,
	mutate func(*entities.SavedItem) bool,
) (*entities.SavedItem, bool, error) {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		item, err := s.store.GetItem(ctx, userID, itemID)
		if err != nil {
			return nil, false, err
		}
		if !mutate(item) {
			return item, false, nil
		}

		err = s.store.UpdateItem(ctx, item)
		if err == nil {
			return item, true, nil
		}

		if pkgerrors.IsConflict(err) && attempt < maxUpdateRetries-1 {
			delay := retryBaseDelay * time.Duration(1<<attempt) // 100ms, 200ms, 400ms
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}
		return nil, false, err
	}
	return nil, false, pkgerrors.NewConflictError("max retries exceeded for item update")
}

func (s *EdgeService) publish(ctx context.Context, event events.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
