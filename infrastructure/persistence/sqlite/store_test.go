package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eden-backend/domain/core/entities"
	pkgerrors "eden-backend/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "eden.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newItem(t *testing.T, userID, url, title string, tags ...string) *entities.SavedItem {
	t.Helper()
	item, err := entities.NewSavedItem(entities.NewItemParams{
		UserID:  userID,
		URL:     url,
		Title:   title,
		Summary: "summary of " + title,
		Tags:    tags,
	}, 50000)
	require.NoError(t, err)
	return item
}

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	item := newItem(t, "u1", "https://a.test/post", "Alpha", "Go", "Databases")
	item.AddConnection("other", "shared topic")
	require.NoError(t, s.CreateItem(ctx, item))
	assert.Equal(t, 1, item.Version)

	got, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Title)
	assert.Equal(t, []string{"Go", "Databases"}, got.Tags)
	assert.Equal(t, "shared topic", got.ConnectionReasons["other"])
	assert.Equal(t, 1, got.Version)

	_, err = s.GetItem(ctx, "u2", item.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	err = s.CreateItem(ctx, item)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestUpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	item := newItem(t, "u1", "https://a.test", "Alpha")
	require.NoError(t, s.CreateItem(ctx, item))

	first, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)
	second, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)

	first.IsRead = true
	require.NoError(t, s.UpdateItem(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Notes = "stale"
	err = s.UpdateItem(ctx, second)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	stored, _ := s.GetItem(ctx, "u1", item.ID)
	assert.True(t, stored.IsRead)
	assert.Empty(t, stored.Notes)

	missing := newItem(t, "u1", "https://b.test", "Beta")
	assert.True(t, pkgerrors.IsNotFound(s.UpdateItem(ctx, missing)))
}

func TestListOrderAndSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := newItem(t, "u1", "https://a.test", "Rust ownership")
	b := newItem(t, "u1", "https://b.test", "Go channels")
	c := newItem(t, "u1", "https://c.test", "Go generics")
	other := newItem(t, "u2", "https://d.test", "Go modules")
	for _, it := range []*entities.SavedItem{a, b, c, other} {
		require.NoError(t, s.CreateItem(ctx, it))
	}

	items, err := s.GetItemsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

	found, err := s.SearchItems(ctx, "u1", "go")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, c.ID, found[0].ID, "newest first")

	require.NoError(t, s.DeleteItem(ctx, "u1", b.ID))
	assert.True(t, pkgerrors.IsNotFound(s.DeleteItem(ctx, "u1", b.ID)))
	items, _ = s.GetItemsByUser(ctx, "u1")
	assert.Len(t, items, 2)
}

func TestAggregatesAcrossUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.CreateItem(ctx, newItem(t, "u1", "https://a.test", "A", "Go")))
	require.NoError(t, s.CreateItem(ctx, newItem(t, "u2", "https://b.test", "B", "go", "Web")))

	collections, err := s.GetAllCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "Go", collections[0].Name)
	assert.Len(t, collections[0].ItemIDs, 2)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	token, err := s.IssueToken(ctx, "u1")
	require.NoError(t, err)

	userID, err := s.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = s.ResolveToken(ctx, "edn_unknown")
	assert.True(t, pkgerrors.IsUnauthorized(err))

	_, err = s.IssueToken(ctx, "")
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eden.db")

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	item := newItem(t, "u1", "https://a.test", "Alpha")
	require.NoError(t, s.CreateItem(ctx, item))
	require.NoError(t, s.Close())

	s, err = Open(path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
}
