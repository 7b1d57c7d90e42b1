package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(t *testing.T, url string) *SavedItem {
	t.Helper()
	item, err := NewSavedItem(NewItemParams{UserID: "user-1", URL: url, Title: "Title"}, 50000)
	require.NoError(t, err)
	return item
}

func TestNewSavedItem(t *testing.T) {
	t.Run("derives domain and truncates content", func(t *testing.T) {
		item, err := NewSavedItem(NewItemParams{
			UserID:  "user-1",
			URL:     "https://WWW.Example.com/post",
			Content: strings.Repeat("a", 60000),
		}, 50000)
		require.NoError(t, err)

		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "example.com", item.Domain)
		assert.Equal(t, "example.com", item.Title)
		assert.Len(t, item.Content, 50000)
		assert.Equal(t, item.SavedAt, item.LastAccessed)
		assert.NotNil(t, item.Connections)
		assert.NotNil(t, item.ConnectionReasons)
	})

	t.Run("requires user and url", func(t *testing.T) {
		_, err := NewSavedItem(NewItemParams{URL: "https://a.test"}, 10)
		assert.Error(t, err)
		_, err = NewSavedItem(NewItemParams{UserID: "u"}, 10)
		assert.Error(t, err)
	})
}

func TestAddConnectionIsIdempotent(t *testing.T) {
	item := newTestItem(t, "https://a.test")

	assert.True(t, item.AddConnection("b", "same topic"))
	assert.False(t, item.AddConnection("b", "another reason"))
	assert.False(t, item.AddConnection(item.ID, "self"))

	assert.Equal(t, []string{"b"}, item.Connections)
	assert.Equal(t, "same topic", item.ConnectionReasons["b"])

	assert.True(t, item.RemoveConnection("b"))
	assert.Empty(t, item.Connections)
	assert.NotContains(t, item.ConnectionReasons, "b")
}

func TestCloneIsDeep(t *testing.T) {
	item := newTestItem(t, "https://a.test")
	item.AddConnection("b", "r")

	clone := item.Clone()
	clone.AddConnection("c", "r2")
	clone.Tags = append(clone.Tags, "x")

	assert.Equal(t, []string{"b"}, item.Connections)
	assert.Empty(t, item.Tags)
}

func TestBuildGraphEmitsEachEdgeOnce(t *testing.T) {
	a := newTestItem(t, "https://a.test")
	b := newTestItem(t, "https://b.test")
	a.AddConnection(b.ID, "shared topic")
	b.AddConnection(a.ID, "shared topic")
	a.AddConnection("missing", "dangling")

	g := BuildGraph([]*SavedItem{a, b})

	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "shared topic", g.Edges[0].Reason)
}

func TestSetReadingProgress(t *testing.T) {
	item := newTestItem(t, "https://a.test")
	assert.NoError(t, item.SetReadingProgress(100))
	assert.Error(t, item.SetReadingProgress(101))
	assert.Error(t, item.SetReadingProgress(-1))
	assert.Equal(t, 100, item.ReadingProgress)
}
