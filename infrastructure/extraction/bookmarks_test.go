package extraction

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const netscapeExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev/" ADD_DATE="1">The Go Programming Language</A>
        <DT><A HREF="javascript:alert(1)">Bookmarklet</A>
        <DT><A HREF="http://example.com/a">Example   A</A>
        <DT><A HREF="https://go.dev/">Duplicate</A>
        <DT><A HREF="ftp://files.example.com">FTP</A>
    </DL><p>
</DL><p>`

func TestIsBookmarkExport(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"netscape signature", netscapeExport, true},
		{"link list without signature", `<dl><dt><a href="http://a.test">a</a><dt><a href="http://b.test">b</a><DT><A HREF="http://c.test">c</A></dl>`, true},
		{"too few link entries", `<dl><dt><a href="http://a.test">a</a><dt><a href="http://b.test">b</a></dl>`, false},
		{"ordinary page", `<html><body><a href="http://a.test">a</a></body></html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBookmarkExport([]byte(tt.data)))
		})
	}
}

func TestParseBookmarksCapsAndFilters(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n<DL>\n")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "<DT><A HREF=\"https://site%d.test/\">Site %d</A>\n", i, i)
	}
	sb.WriteString("</DL>")

	got := ParseBookmarks([]byte(sb.String()), 100)
	assert.Len(t, got, 100)
	assert.Equal(t, "https://site0.test/", got[0].URL)
	assert.Equal(t, "https://site99.test/", got[99].URL)
}

func TestParseBookmarksNonExport(t *testing.T) {
	assert.Nil(t, ParseBookmarks([]byte("<html><body>hi</body></html>"), 100))
	assert.Nil(t, ParseBookmarks([]byte("<!DOCTYPE NETSCAPE-Bookmark-file-1><DL></DL>"), 100))
}
