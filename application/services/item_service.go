package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/domain/events"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

// ItemPatch lists the user-editable fields of an item. Nil fields are left alone.
type ItemPatch struct {
	IsRead          *bool     `json:"isRead"`
	ReadingProgress *int      `json:"readingProgress" validate:"omitempty,min=0,max=100"`
	Notes           *string   `json:"notes" validate:"omitempty,max=10000"`
	Highlights      *[]string `json:"highlights" validate:"omitempty,max=200"`
}

// ItemService serves reads and edits of saved items.
type ItemService struct {
	store   ports.ItemStore
	edges   *EdgeService
	events  ports.EventBus
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewItemService creates a new item service
func NewItemService(
	store ports.ItemStore,
	edges *EdgeService,
	eventBus ports.EventBus,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ItemService {
	return &ItemService{store: store, edges: edges, events: eventBus, metrics: metrics, logger: logger}
}

func (s *ItemService) List(ctx context.Context, userID string) ([]*entities.SavedItem, error) {
	return s.store.GetItemsByUser(ctx, userID)
}

func (s *ItemService) Get(ctx context.Context, userID, itemID string) (*entities.SavedItem, error) {
	return s.store.GetItem(ctx, userID, itemID)
}

func (s *ItemService) Search(ctx context.Context, userID, query string) ([]*entities.SavedItem, error) {
	return s.store.SearchItems(ctx, userID, query)
}

// Update applies patch with optimistic retry.
func (s *ItemService) Update(ctx context.Context, userID, itemID string, patch ItemPatch) (*entities.SavedItem, error) {
	var validationErr error
	item, _, err := s.edges.updateWithRetry(ctx, userID, itemID, func(i *entities.SavedItem) bool {
		if patch.IsRead != nil {
			i.IsRead = *patch.IsRead
		}
		if patch.ReadingProgress != nil {
			if validationErr = i.SetReadingProgress(*patch.ReadingProgress); validationErr != nil {
				return false
			}
		}
		if patch.Notes != nil {
			i.Notes = *patch.Notes
		}
		if patch.Highlights != nil {
			i.Highlights = append([]string{}, (*patch.Highlights)...)
		}
		i.Touch()
		return true
	})
	if validationErr != nil {
		return nil, validationErr
	}
	return item, err
}

// Delete removes the item and its edges from every neighbour.
func (s *ItemService) Delete(ctx context.Context, userID, itemID string) error {
	if _, err := s.store.GetItem(ctx, userID, itemID); err != nil {
		return err
	}
	if _, err := s.edges.Disconnect(ctx, userID, itemID); err != nil {
		return pkgerrors.Wrap(err, "failed to disconnect item")
	}
	if err := s.store.DeleteItem(ctx, userID, itemID); err != nil {
		return err
	}

	s.metrics.RecordItemDeleted()
	if s.events != nil {
		if err := s.events.Publish(ctx, events.NewItemDeleted(itemID, userID, time.Now())); err != nil {
			s.logger.Warn("Failed to publish event", zap.String("eventType", "item.deleted"), zap.Error(err))
		}
	}
	s.logger.Info("Item deleted", zap.String("userID", userID), zap.String("itemID", itemID))
	return nil
}

// Graph returns the user's items as nodes with each undirected edge once.
func (s *ItemService) Graph(ctx context.Context, userID string) (entities.Graph, error) {
	items, err := s.store.GetItemsByUser(ctx, userID)
	if err != nil {
		return entities.Graph{}, err
	}
	return entities.BuildGraph(items), nil
}

func (s *ItemService) Collections(ctx context.Context) ([]entities.Collection, error) {
	return s.store.GetAllCollections(ctx)
}

func (s *ItemService) Concepts(ctx context.Context) ([]entities.Concept, error) {
	return s.store.GetAllConcepts(ctx)
}
