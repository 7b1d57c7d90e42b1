package entities

import (
	"sort"
	"strings"
)

// Collection groups items sharing a tag. Collections are process-wide.
type Collection struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	ItemIDs []string `json:"itemIds"`
}

// Concept is a named idea extracted from items, with its usage count.
type Concept struct {
	Name      string `json:"name"`
	ItemCount int    `json:"itemCount"`
}

// GraphNode and GraphEdge describe the item graph returned to clients.
type GraphNode struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Domain string   `json:"domain"`
	Tags   []string `json:"tags"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// Graph is the undirected view over a user's connections.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// BuildGraph derives the graph from items. Each undirected edge appears once;
// edges to items outside the set are omitted.
func BuildGraph(items []*SavedItem) Graph {
	g := Graph{Nodes: make([]GraphNode, 0, len(items)), Edges: []GraphEdge{}}
	present := make(map[string]bool, len(items))
	for _, it := range items {
		present[it.ID] = true
	}
	seen := make(map[[2]string]bool)
	for _, it := range items {
		g.Nodes = append(g.Nodes, GraphNode{ID: it.ID, Title: it.Title, Domain: it.Domain, Tags: it.Tags})
		for _, other := range it.Connections {
			if !present[other] {
				continue
			}
			key := [2]string{it.ID, other}
			if other < it.ID {
				key = [2]string{other, it.ID}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			g.Edges = append(g.Edges, GraphEdge{Source: key[0], Target: key[1], Reason: it.ConnectionReasons[other]})
		}
	}
	return g
}

// AggregateCollections groups items into one collection per tag, keyed by the
// lower-cased tag and ordered by first appearance.
func AggregateCollections(items []*SavedItem) []Collection {
	index := make(map[string]int)
	out := []Collection{}
	for _, it := range items {
		for _, tag := range it.Tags {
			key := strings.ToLower(strings.TrimSpace(tag))
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, Collection{ID: collectionID(key), Name: tag, ItemIDs: []string{}})
			}
			out[i].ItemIDs = append(out[i].ItemIDs, it.ID)
		}
	}
	return out
}

// AggregateConcepts counts the items mentioning each concept, ordered by
// count and then name.
func AggregateConcepts(items []*SavedItem) []Concept {
	index := make(map[string]int)
	out := []Concept{}
	for _, it := range items {
		for _, c := range it.Concepts {
			key := strings.ToLower(strings.TrimSpace(c))
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, Concept{Name: c})
			}
			out[i].ItemCount++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ItemCount != out[j].ItemCount {
			return out[i].ItemCount > out[j].ItemCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MatchesQuery reports whether every word of query appears, case-insensitively,
// in the item's title, summary, content, notes, tags or concepts.
func (i *SavedItem) MatchesQuery(query string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return false
	}
	haystack := strings.ToLower(strings.Join([]string{
		i.Title, i.Summary, i.Content, i.Notes, i.URL,
		strings.Join(i.Tags, " "), strings.Join(i.Concepts, " "),
	}, "\n"))
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

func collectionID(key string) string {
	return "tag-" + strings.Join(strings.Fields(key), "-")
}
