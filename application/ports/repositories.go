package ports

import (
	"context"

	"eden-backend/domain/core/entities"
	"eden-backend/domain/events"
)

// ItemStore defines per-user keyed storage of saved items.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type ItemStore interface {
	// CreateItem persists a new item. The item's Version is set by the store.
	CreateItem(ctx context.Context, item *entities.SavedItem) error

	// GetItem retrieves one item; returns a NOT_FOUND error when absent
	// or owned by another user.
	GetItem(ctx context.Context, userID, itemID string) (*entities.SavedItem, error)

	// UpdateItem writes item if its Version matches the stored version,
	// otherwise returns a CONFLICT error. On success Version is incremented.
	UpdateItem(ctx context.Context, item *entities.SavedItem) error

	// DeleteItem removes an item
	DeleteItem(ctx context.Context, userID, itemID string) error

	// GetItemsByUser returns the user's items in insertion order
	GetItemsByUser(ctx context.Context, userID string) ([]*entities.SavedItem, error)

	// SearchItems finds the user's items matching a free-text query
	SearchItems(ctx context.Context, userID, query string) ([]*entities.SavedItem, error)

	GetAllCollections(ctx context.Context) ([]entities.Collection, error)
	GetAllConcepts(ctx context.Context) ([]entities.Concept, error)
}

// TokenStore maps opaque bookmarklet API tokens to users.
type TokenStore interface {
	IssueToken(ctx context.Context, userID string) (string, error)
	ResolveToken(ctx context.Context, token string) (string, error)
}

// EventBus publishes domain events to interested subscribers.
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
