package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eden-backend/domain/core/entities"
	"eden-backend/infrastructure/persistence/memory"
)

func newItem(t *testing.T, userID, title, content string, tags ...string) *entities.SavedItem {
	t.Helper()
	item, err := entities.NewSavedItem(entities.NewItemParams{
		UserID:  userID,
		URL:     "https://example.test/" + title,
		Title:   title,
		Content: content,
		Tags:    tags,
	}, 50000)
	require.NoError(t, err)
	return item
}

func ids(items []*entities.SavedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestIndexedSearchScopesByUser(t *testing.T) {
	ctx := context.Background()
	s, err := Open(memory.NewStore(), "", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	goItem := newItem(t, "u1", "Concurrency", "goroutines and channels in practice", "golang")
	rustItem := newItem(t, "u1", "Ownership", "borrow checker and lifetimes", "rust")
	foreign := newItem(t, "u2", "Channels", "goroutines everywhere", "golang")
	for _, it := range []*entities.SavedItem{goItem, rustItem, foreign} {
		require.NoError(t, s.CreateItem(ctx, it))
	}

	found, err := s.SearchItems(ctx, "u1", "goroutines")
	require.NoError(t, err)
	assert.Equal(t, []string{goItem.ID}, ids(found))

	found, err = s.SearchItems(ctx, "u1", "goroutines lifetimes")
	require.NoError(t, err)
	assert.Empty(t, found, "every word must match")

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndexFollowsUpdatesAndDeletes(t *testing.T) {
	ctx := context.Background()
	s, err := Open(memory.NewStore(), "", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	item := newItem(t, "u1", "Draft", "nothing interesting")
	require.NoError(t, s.CreateItem(ctx, item))

	item.Notes = "remember kubernetes operators"
	require.NoError(t, s.UpdateItem(ctx, item))

	found, err := s.SearchItems(ctx, "u1", "kubernetes")
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, ids(found))

	require.NoError(t, s.DeleteItem(ctx, "u1", item.ID))
	found, err = s.SearchItems(ctx, "u1", "kubernetes")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReindexFromInnerStore(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	require.NoError(t, inner.CreateItem(ctx, newItem(t, "u1", "Pre-existing", "vector databases")))

	s, err := Open(inner, filepath.Join(t.TempDir(), "index.bleve"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	found, err := s.SearchItems(ctx, "u1", "vector")
	require.NoError(t, err)
	assert.Empty(t, found, "items written before the index existed are not indexed")

	n, err := s.Reindex(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err = s.SearchItems(ctx, "u1", "vector")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
