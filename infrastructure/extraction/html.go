package extraction

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type htmlPage struct {
	title   string
	ogTitle string
	image   string
	text    string
}

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Iframe:   true,
	atom.Title:    true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Blockquote: true, atom.Pre: true, atom.Dt: true, atom.Dd: true,
}

// parseHTML pulls the title, preview image and visible text out of a page.
// The parser is lenient, so malformed markup still yields whatever text it has.
func parseHTML(data []byte) htmlPage {
	var page htmlPage
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return page
	}

	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if page.title == "" {
					page.title = nodeText(n)
				}
			case atom.Meta:
				readMeta(n, &page)
			}
			if skippedElements[n.DataAtom] {
				// <head> still carries title and meta tags.
				if n.DataAtom == atom.Head {
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.ElementNode && (c.DataAtom == atom.Title || c.DataAtom == atom.Meta) {
							walk(c)
						}
					}
				}
				return
			}
			if blockElements[n.DataAtom] {
				text.WriteByte('\n')
			}
		}
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	page.text = collapseWhitespace(text.String())
	return page
}

func readMeta(n *html.Node, page *htmlPage) {
	var key, content string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			key = strings.ToLower(strings.TrimSpace(a.Val))
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	if content == "" {
		return
	}
	switch key {
	case "og:title":
		if page.ogTitle == "" {
			page.ogTitle = content
		}
	case "og:image", "og:image:url", "twitter:image", "twitter:image:src":
		if page.image == "" {
			page.image = content
		}
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return collapseWhitespace(sb.String())
}

// stripHTML returns the visible text of an HTML document.
func stripHTML(data []byte) (title, text string) {
	page := parseHTML(data)
	return firstNonEmpty(page.ogTitle, page.title), page.text
}

// collapseWhitespace joins runs of spaces into one and keeps at most one
// newline between paragraphs.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if l := strings.Join(strings.Fields(line), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
