package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagged(id string, tags, concepts []string) *SavedItem {
	return &SavedItem{ID: id, Title: "Item " + id, Tags: tags, Concepts: concepts}
}

func TestAggregateCollections(t *testing.T) {
	items := []*SavedItem{
		tagged("a", []string{"Go", "Databases"}, nil),
		tagged("b", []string{"go ", ""}, nil),
		tagged("c", []string{"Cooking"}, nil),
	}

	got := AggregateCollections(items)
	require.Len(t, got, 3)

	assert.Equal(t, Collection{ID: "tag-go", Name: "Go", ItemIDs: []string{"a", "b"}}, got[0])
	assert.Equal(t, "tag-databases", got[1].ID)
	assert.Equal(t, []string{"c"}, got[2].ItemIDs)

	assert.Empty(t, AggregateCollections(nil))
	assert.NotNil(t, AggregateCollections(nil), "encodes as an empty list")
}

func TestAggregateConcepts(t *testing.T) {
	items := []*SavedItem{
		tagged("a", nil, []string{"concurrency", "channels"}),
		tagged("b", nil, []string{"Concurrency"}),
		tagged("c", nil, []string{"baking", "channels", "concurrency"}),
	}

	got := AggregateConcepts(items)
	assert.Equal(t, []Concept{
		{Name: "concurrency", ItemCount: 3},
		{Name: "channels", ItemCount: 2},
		{Name: "baking", ItemCount: 1},
	}, got)
}

func TestMatchesQuery(t *testing.T) {
	it := &SavedItem{
		Title:    "Understanding Goroutines",
		Summary:  "How the scheduler multiplexes work.",
		Content:  "Long body text",
		Notes:    "read again",
		URL:      "https://go.dev/blog",
		Tags:     []string{"Go"},
		Concepts: []string{"scheduling"},
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"goroutines", true},
		{"GOROUTINES scheduler", true},
		{"go.dev", true},
		{"again scheduling", true},
		{"goroutines rust", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, it.MatchesQuery(tt.query))
		})
	}
}

func TestBuildGraphDropsDanglingEdges(t *testing.T) {
	a := &SavedItem{ID: "a", Connections: []string{"b", "gone"}, ConnectionReasons: map[string]string{"b": "both about Go"}}
	b := &SavedItem{ID: "b", Connections: []string{"a"}}

	g := BuildGraph([]*SavedItem{a, b})
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, GraphEdge{Source: "a", Target: "b", Reason: "both about Go"}, g.Edges[0])

	empty := BuildGraph(nil)
	assert.NotNil(t, empty.Nodes)
	assert.NotNil(t, empty.Edges)
}
