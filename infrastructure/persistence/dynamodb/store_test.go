package dynamodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eden-backend/domain/core/entities"
	pkgerrors "eden-backend/pkg/errors"
)

func newTestStore() (*Store, *fakeDynamo) {
	fake := newFakeDynamo()
	return NewStore(fake, "eden-test", zap.NewNop()), fake
}

func newItem(t *testing.T, userID, url, title string, tags ...string) *entities.SavedItem {
	t.Helper()
	item, err := entities.NewSavedItem(entities.NewItemParams{
		UserID: userID,
		URL:    url,
		Title:  title,
		Tags:   tags,
	}, 50000)
	require.NoError(t, err)
	return item
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	item := newItem(t, "u1", "https://a.test/x", "Alpha", "Go")
	require.NoError(t, s.CreateItem(ctx, item))
	assert.Equal(t, 1, item.Version)

	got, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Title)
	assert.Equal(t, "a.test", got.Domain)
	assert.Equal(t, []string{"Go"}, got.Tags)
	assert.NotNil(t, got.Connections)
	assert.NotNil(t, got.ConnectionReasons)

	_, err = s.GetItem(ctx, "u2", item.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	assert.True(t, pkgerrors.IsConflict(s.CreateItem(ctx, item)))
}

func TestUpdateUsesVersionCondition(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	item := newItem(t, "u1", "https://a.test", "Alpha")
	require.NoError(t, s.CreateItem(ctx, item))

	first, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)
	stale, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)

	first.AddConnection("other", "shared ideas")
	require.NoError(t, s.UpdateItem(ctx, first))
	assert.Equal(t, 2, first.Version)

	stale.Notes = "lost update"
	err = s.UpdateItem(ctx, stale)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	stored, err := s.GetItem(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, []string{"other"}, stored.Connections)
	assert.Equal(t, "shared ideas", stored.ConnectionReasons["other"])
	assert.Empty(t, stored.Notes)

	ghost := newItem(t, "u1", "https://ghost.test", "Ghost")
	assert.True(t, pkgerrors.IsNotFound(s.UpdateItem(ctx, ghost)))
}

func TestListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	var want []string
	for _, title := range []string{"one", "two", "three", "four"} {
		it := newItem(t, "u1", "https://"+title+".test", title)
		require.NoError(t, s.CreateItem(ctx, it))
		want = append(want, it.ID)
	}
	require.NoError(t, s.CreateItem(ctx, newItem(t, "u2", "https://x.test", "other user")))

	items, err := s.GetItemsByUser(ctx, "u1")
	require.NoError(t, err)
	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.ID)
	}
	assert.Equal(t, want, got)

	found, err := s.SearchItems(ctx, "u1", "o")
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "four", found[0].Title, "newest first")
}

func TestDeleteAndAggregates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	a := newItem(t, "u1", "https://a.test", "A", "Go", "Web")
	b := newItem(t, "u2", "https://b.test", "B", "go")
	require.NoError(t, s.CreateItem(ctx, a))
	require.NoError(t, s.CreateItem(ctx, b))
	token, err := s.IssueToken(ctx, "u1")
	require.NoError(t, err)

	collections, err := s.GetAllCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2, "token records are not items")
	assert.ElementsMatch(t, []string{a.ID, b.ID}, collections[0].ItemIDs)

	require.NoError(t, s.DeleteItem(ctx, "u1", a.ID))
	assert.True(t, pkgerrors.IsNotFound(s.DeleteItem(ctx, "u1", a.ID)))

	userID, err := s.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = s.ResolveToken(ctx, "edn_nope")
	assert.True(t, pkgerrors.IsUnauthorized(err))
}
