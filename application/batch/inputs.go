package batch

import (
	"strings"

	"eden-backend/application/ports"
)

// Input is one unit of work: a URL to fetch, a document that was already
// extracted, or an input that already failed before the batch started.
type Input struct {
	URL        string
	Extraction *ports.Extraction
	Err        error
	// Label is reported in events; defaults to URL.
	Label      string
	// Title is used when the fetched page has no title of its own.
	Title      string
}

func (in Input) label() string {
	if in.Label != "" {
		return in.Label
	}
	if in.URL != "" {
		return in.URL
	}
	if in.Extraction != nil {
		return in.Extraction.URL
	}
	return ""
}

// URLInputs trims each entry, drops blanks and keeps at most max. Entries that
// are not valid URLs stay in and fail inside their own pipeline.
func URLInputs(raw []string, max int) []Input {
	inputs := make([]Input, 0, len(raw))
	for _, r := range raw {
		u := strings.TrimSpace(r)
		if u == "" {
			continue
		}
		if max > 0 && len(inputs) == max {
			break
		}
		inputs = append(inputs, Input{URL: u})
	}
	return inputs
}

// BookmarkInputs turns a bookmark export into URL inputs, keeping at most max.
func BookmarkInputs(bookmarks []ports.Bookmark, max int) []Input {
	if max > 0 && len(bookmarks) > max {
		bookmarks = bookmarks[:max]
	}
	inputs := make([]Input, 0, len(bookmarks))
	for _, b := range bookmarks {
		inputs = append(inputs, Input{URL: b.URL, Label: b.URL, Title: b.Title})
	}
	return inputs
}
