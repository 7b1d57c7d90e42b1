package extraction

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	pkgerrors "eden-backend/pkg/errors"
)

type document struct {
	title string
	text  string
}

var legacyDocumentExts = []string{".doc", ".docx", ".rtf", ".odt", ".pages"}

var plainTextExts = []string{".txt", ".md", ".markdown", ".csv", ".json", ".log"}

// extractDocument dispatches on the sniffed MIME type, falling back to the
// file extension.
func (e *Extractor) extractDocument(name string, data []byte, mt *mimetype.MIME) (document, error) {
	switch {
	case hasExt(name, legacyDocumentExts...):
		return document{text: fmt.Sprintf("[%s] Document text extraction is not available for this format.", name)}, nil

	case mt.Is("application/pdf") || hasExt(name, ".pdf"):
		text, err := pdfText(data)
		if err != nil {
			return document{}, pkgerrors.NewExtractionError("could not read PDF "+name, err)
		}
		return document{text: e.truncate(text)}, nil

	case isHTML(mt, "") || hasExt(name, ".html", ".htm"):
		title, text := stripHTML(data)
		return document{title: title, text: e.truncate(text)}, nil

	case hasExt(name, plainTextExts...) || isText(mt):
		if !utf8.Valid(data) {
			return document{}, pkgerrors.NewExtractionError(name+" is not valid UTF-8 text", nil)
		}
		return document{text: e.truncate(strings.TrimSpace(string(data)))}, nil
	}

	return document{}, pkgerrors.NewExtractionError(
		fmt.Sprintf("unsupported file type %s for %s", mt.String(), name), nil,
	).WithCode("UNSUPPORTED_FILE_TYPE")
}

// isText walks the MIME hierarchy looking for text/plain; csv, json and
// markdown all descend from it.
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteByte('\n')
	}

	text = collapseWhitespace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text")
	}
	return text, nil
}
