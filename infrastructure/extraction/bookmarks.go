package extraction

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"eden-backend/application/ports"
)

const (
	netscapeSignature   = "<!doctype netscape-bookmark-file-1>"
	minLinkListEntries  = 3
	defaultMaxBookmarks = 100
)

var linkListEntryRe = regexp.MustCompile(`(?i)<dt>\s*<a\s+href=`)

// IsBookmarkExport reports whether data looks like a browser bookmark export:
// either the Netscape signature or a <DT><A HREF=...> link list.
func IsBookmarkExport(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(bytes.ToLower(head), []byte(netscapeSignature)) {
		return true
	}
	return len(linkListEntryRe.FindAllIndex(data, minLinkListEntries)) >= minLinkListEntries
}

// ParseBookmarks returns the http(s) links of a bookmark export, deduplicated
// and capped at max (100 when max <= 0). It returns nil when data is not a
// bookmark export or holds no usable links.
func ParseBookmarks(data []byte, max int) []ports.Bookmark {
	if !IsBookmarkExport(data) {
		return nil
	}
	if max <= 0 {
		max = defaultMaxBookmarks
	}

	var bookmarks []ports.Bookmark
	seen := make(map[string]bool)
	z := html.NewTokenizer(bytes.NewReader(data))
	var current *ports.Bookmark

	for len(bookmarks) < max {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.A {
				continue
			}
			href := attr(tok, "href")
			if !isWebURL(href) || seen[href] {
				current = nil
				continue
			}
			seen[href] = true
			current = &ports.Bookmark{URL: href}
		case html.TextToken:
			if current != nil {
				current.Title += string(z.Text())
			}
		case html.EndTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.A && current != nil {
				current.Title = strings.Join(strings.Fields(current.Title), " ")
				bookmarks = append(bookmarks, *current)
				current = nil
			}
		}
	}
	if current != nil && len(bookmarks) < max {
		current.Title = strings.Join(strings.Fields(current.Title), " ")
		bookmarks = append(bookmarks, *current)
	}
	if len(bookmarks) == 0 {
		return nil
	}
	return bookmarks
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
