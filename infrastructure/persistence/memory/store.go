// Package memory provides in-process implementations of the store ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
	"eden-backend/pkg/auth"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// Store is an in-memory ItemStore and TokenStore. Items are deep-copied on
// the way in and out so callers never share state with the store.
type Store struct {
	mu     sync.RWMutex
	items  map[string]*entities.SavedItem
	byUser map[string][]string // item ids in insertion order
	tokens map[string]string   // token -> user id
}

var (
	_ ports.ItemStore  = (*Store)(nil)
	_ ports.TokenStore = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		items:  make(map[string]*entities.SavedItem),
		byUser: make(map[string][]string),
		tokens: make(map[string]string),
	}
}

// CreateItem stores a new item at version 1.
func (s *Store) CreateItem(ctx context.Context, item *entities.SavedItem) error {
	if item == nil || item.ID == "" || item.UserID == "" {
		return pkgerrors.NewValidationError("item id and user id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return pkgerrors.NewConflictError("item already exists")
	}
	item.Version = 1
	s.items[item.ID] = item.Clone()
	s.byUser[item.UserID] = append(s.byUser[item.UserID], item.ID)
	return nil
}

func (s *Store) GetItem(ctx context.Context, userID, itemID string) (*entities.SavedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok || item.UserID != userID {
		return nil, pkgerrors.NewNotFoundError("item")
	}
	return item.Clone(), nil
}

// UpdateItem replaces the stored item when versions match.
func (s *Store) UpdateItem(ctx context.Context, item *entities.SavedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[item.ID]
	if !ok || current.UserID != item.UserID {
		return pkgerrors.NewNotFoundError("item")
	}
	if current.Version != item.Version {
		return pkgerrors.NewConflictError("item was modified concurrently").
			WithDetails(map[string]interface{}{"expected": item.Version, "actual": current.Version})
	}

	item.Version++
	item.LastAccessed = utils.NowMillis()
	s.items[item.ID] = item.Clone()
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok || item.UserID != userID {
		return pkgerrors.NewNotFoundError("item")
	}
	delete(s.items, itemID)

	ids := s.byUser[userID]
	for i, id := range ids {
		if id == itemID {
			s.byUser[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) GetItemsByUser(ctx context.Context, userID string) ([]*entities.SavedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]*entities.SavedItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id].Clone())
	}
	return out, nil
}

// SearchItems returns the user's items containing every word of query,
// newest first.
func (s *Store) SearchItems(ctx context.Context, userID, query string) ([]*entities.SavedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := []*entities.SavedItem{}
	for i := len(ids) - 1; i >= 0; i-- {
		if item := s.items[ids[i]]; item.MatchesQuery(query) {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func (s *Store) GetAllCollections(ctx context.Context) ([]entities.Collection, error) {
	return entities.AggregateCollections(s.allItems()), nil
}

func (s *Store) GetAllConcepts(ctx context.Context) ([]entities.Concept, error) {
	return entities.AggregateConcepts(s.allItems()), nil
}

// allItems returns every item grouped by user in insertion order. The items
// are shared, so callers must not modify them.
func (s *Store) allItems() []*entities.SavedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.byUser))
	for userID := range s.byUser {
		users = append(users, userID)
	}
	sort.Strings(users)

	out := make([]*entities.SavedItem, 0, len(s.items))
	for _, userID := range users {
		for _, id := range s.byUser[userID] {
			out = append(out, s.items[id])
		}
	}
	return out
}

// IssueToken creates a new bookmarklet token for userID.
func (s *Store) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", pkgerrors.NewValidationError("user id is required")
	}
	token := auth.NewAPIToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
	return token, nil
}

// ResolveToken maps a token back to its user.
func (s *Store) ResolveToken(ctx context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.tokens[token]
	if !ok {
		return "", pkgerrors.NewUnauthorizedError("invalid token")
	}
	return userID, nil
}
