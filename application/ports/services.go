package ports

import (
	"context"
	"io"

	"eden-backend/domain/core/entities"
)

// Bookmark is one link recovered from a browser bookmark export.
type Bookmark struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Extraction is the normalized output of the content extractor. When the
// source was a bookmark export, Bookmarks is set and the other fields are empty.
type Extraction struct {
	Title     string
	Content   string
	Domain    string
	Favicon   string
	ImageURL  string
	URL       string
	Bookmarks []Bookmark
}

// IsBookmarkExport reports whether the extraction expanded into bookmarks.
func (e *Extraction) IsBookmarkExport() bool {
	return e != nil && len(e.Bookmarks) > 0
}

// FileSource is an uploaded file handed to the extractor.
type FileSource struct {
	Name   string
	Reader io.Reader
	Size   int64
}

// ContentExtractor turns URLs and uploaded files into text.
type ContentExtractor interface {
	ExtractURL(ctx context.Context, rawURL string) (*Extraction, error)
	ExtractFile(ctx context.Context, file FileSource) (*Extraction, error)
}

// Analysis is the LLM enrichment of an item.
type Analysis struct {
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Concepts []string `json:"concepts"`
}

// Analyzer produces an Analysis and never fails; errors degrade to a
// fixed fallback.
type Analyzer interface {
	Analyze(ctx context.Context, content, title string) Analysis
}

// LinkResult lists the candidate ids chosen as connections, with reasons.
type LinkResult struct {
	Connections []string          `json:"connections"`
	Reasons     map[string]string `json:"reasons"`
}

// IsEmpty reports whether no connection was found.
func (r LinkResult) IsEmpty() bool {
	return len(r.Connections) == 0
}

// Linker selects related items from a candidate pool. It never fails;
// errors yield an empty result.
type Linker interface {
	Link(ctx context.Context, item *entities.SavedItem, candidates []*entities.SavedItem) LinkResult
}
