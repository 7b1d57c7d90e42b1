// Package search adds a bleve full-text index in front of any ItemStore.
package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/entities"
)

const defaultResultLimit = 50

// document is the indexed projection of a SavedItem.
type document struct {
	UserID   string
	Title    string
	Summary  string
	Content  string
	Notes    string
	URL      string
	Tags     []string
	Concepts []string
}

// IndexedStore decorates an ItemStore: writes go to the inner store first and
// are then mirrored into the index; SearchItems is answered by the index.
// The inner store stays the source of truth, so index failures are logged
// and searches fall back to the inner store.
type IndexedStore struct {
	ports.ItemStore
	index  bleve.Index
	limit  int
	logger *zap.Logger
}

var _ ports.ItemStore = (*IndexedStore)(nil)

// Open opens or creates the index at path and wraps inner. An empty path
// keeps the index in memory.
func Open(inner ports.ItemStore, path string, logger *zap.Logger) (*IndexedStore, error) {
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, buildIndexMapping())
			if err != nil {
				return nil, fmt.Errorf("create index: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
	}

	return &IndexedStore{ItemStore: inner, index: idx, limit: defaultResultLimit, logger: logger}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("UserID", bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("Title", text)
	docMapping.AddFieldMappingsAt("Summary", text)
	docMapping.AddFieldMappingsAt("Content", text)
	docMapping.AddFieldMappingsAt("Notes", text)
	docMapping.AddFieldMappingsAt("URL", text)
	docMapping.AddFieldMappingsAt("Tags", text)
	docMapping.AddFieldMappingsAt("Concepts", text)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the index. The inner store is left open.
func (s *IndexedStore) Close() error {
	return s.index.Close()
}

func (s *IndexedStore) CreateItem(ctx context.Context, item *entities.SavedItem) error {
	if err := s.ItemStore.CreateItem(ctx, item); err != nil {
		return err
	}
	s.put(item)
	return nil
}

func (s *IndexedStore) UpdateItem(ctx context.Context, item *entities.SavedItem) error {
	if err := s.ItemStore.UpdateItem(ctx, item); err != nil {
		return err
	}
	s.put(item)
	return nil
}

func (s *IndexedStore) DeleteItem(ctx context.Context, userID, itemID string) error {
	if err := s.ItemStore.DeleteItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.index.Delete(itemID); err != nil {
		s.logger.Warn("Failed to remove item from search index", zap.String("item_id", itemID), zap.Error(err))
	}
	return nil
}

// SearchItems returns the user's items matching every word of q, best
// match first.
func (s *IndexedStore) SearchItems(ctx context.Context, userID, q string) ([]*entities.SavedItem, error) {
	ids, err := s.search(userID, q)
	if err != nil {
		s.logger.Warn("Search index query failed, scanning store", zap.String("user_id", userID), zap.Error(err))
		return s.ItemStore.SearchItems(ctx, userID, q)
	}

	out := make([]*entities.SavedItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.ItemStore.GetItem(ctx, userID, id)
		if err != nil {
			// Deleted between the search and the read.
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *IndexedStore) search(userID, q string) ([]string, error) {
	owner := bleve.NewTermQuery(userID)
	owner.SetField("UserID")

	words := bleve.NewMatchQuery(q)
	words.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(owner, words), s.limit, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Reindex rebuilds the index entries of one user's items from the inner store.
func (s *IndexedStore) Reindex(ctx context.Context, userID string) (int, error) {
	items, err := s.ItemStore.GetItemsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	batch := s.index.NewBatch()
	for _, item := range items {
		if err := batch.Index(item.ID, toDocument(item)); err != nil {
			return 0, fmt.Errorf("batch index %s: %w", item.ID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return len(items), nil
}

// Count returns the number of indexed items
func (s *IndexedStore) Count() (uint64, error) {
	return s.index.DocCount()
}

func (s *IndexedStore) put(item *entities.SavedItem) {
	if err := s.index.Index(item.ID, toDocument(item)); err != nil {
		s.logger.Warn("Failed to index item", zap.String("item_id", item.ID), zap.Error(err))
	}
}

func toDocument(item *entities.SavedItem) document {
	return document{
		UserID:   item.UserID,
		Title:    item.Title,
		Summary:  item.Summary,
		Content:  item.Content,
		Notes:    item.Notes,
		URL:      item.URL,
		Tags:     item.Tags,
		Concepts: item.Concepts,
	}
}
