// Package extraction turns URLs and uploaded files into normalized text.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/domain/core/valueobjects"
	pkgerrors "eden-backend/pkg/errors"
)

const (
	faviconURLFormat    = "https://www.google.com/s2/favicons?domain=%s&sz=64"
	screenshotURLFormat = "https://s.wordpress.com/mshots/v1/%s?w=600"
)

// Options configures the extractor.
type Options struct {
	FetchTimeout     time.Duration
	MaxFetchBytes    int64
	MaxUploadBytes   int64
	MaxContentLength int
	MaxBookmarks     int
	UserAgent        string
}

// Extractor implements ports.ContentExtractor.
type Extractor struct {
	client *http.Client
	opts   Options
	logger *zap.Logger
}

var _ ports.ContentExtractor = (*Extractor)(nil)

// NewExtractor creates an extractor. A nil client gets one with opts.FetchTimeout.
func NewExtractor(client *http.Client, opts Options, logger *zap.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, opts: opts, logger: logger}
}

// ExtractURL fetches rawURL and extracts its readable content. Non-HTML
// responses go through the same MIME dispatch as uploaded files.
func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (*ports.Extraction, error) {
	target, err := valueobjects.NormalizeURLInput(rawURL)
	if err != nil {
		return nil, err
	}
	domain := valueobjects.DomainOf(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, pkgerrors.NewExtractionError("invalid URL: "+target, err)
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, pkgerrors.NewExtractionError("could not fetch "+target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.NewExtractionError(fmt.Sprintf("could not fetch %s: status %d", target, resp.StatusCode), nil)
	}

	body, err := readLimited(resp.Body, e.opts.MaxFetchBytes)
	if err != nil {
		return nil, pkgerrors.NewExtractionError("could not read "+target, err)
	}

	e.logger.Debug("Fetched URL",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.String("content_type", resp.Header.Get("Content-Type")),
	)

	out := &ports.Extraction{
		URL:     target,
		Domain:  domain,
		Favicon: fmt.Sprintf(faviconURLFormat, domain),
	}

	mt := mimetype.Detect(body)
	if isHTML(mt, resp.Header.Get("Content-Type")) {
		page := parseHTML(body)
		out.Title = firstNonEmpty(page.ogTitle, page.title, domain)
		out.Content = e.truncate(page.text)
		out.ImageURL = resolveImage(target, page.image)
	} else {
		name := filepath.Base(req.URL.Path)
		doc, err := e.extractDocument(name, body, mt)
		if err != nil {
			return nil, err
		}
		out.Title = firstNonEmpty(doc.title, domain)
		out.Content = doc.text
	}
	if out.ImageURL == "" {
		out.ImageURL = fmt.Sprintf(screenshotURLFormat, url.QueryEscape(target))
	}
	return out, nil
}

// ExtractFile extracts an uploaded file. HTML bookmark exports come back
// with Bookmarks set instead of content.
func (e *Extractor) ExtractFile(ctx context.Context, file ports.FileSource) (*ports.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "upload"
	}
	if file.Reader == nil {
		return nil, pkgerrors.NewValidationError("file " + name + " has no content")
	}

	data, err := readLimited(file.Reader, e.opts.MaxUploadBytes)
	if err != nil {
		return nil, pkgerrors.NewExtractionError("could not read "+name, err)
	}

	mt := mimetype.Detect(data)
	if isHTML(mt, "") || hasExt(name, ".html", ".htm") {
		if bookmarks := ParseBookmarks(data, e.opts.MaxBookmarks); bookmarks != nil {
			e.logger.Info("Detected bookmark export",
				zap.String("file", name),
				zap.Int("bookmarks", len(bookmarks)),
			)
			return &ports.Extraction{
				Title:     name,
				URL:       valueobjects.FileURL(name),
				Domain:    valueobjects.DomainOf(valueobjects.FileScheme),
				Bookmarks: bookmarks,
			}, nil
		}
	}

	doc, err := e.extractDocument(name, data, mt)
	if err != nil {
		return nil, err
	}
	return &ports.Extraction{
		Title:   firstNonEmpty(doc.title, name),
		Content: doc.text,
		URL:     valueobjects.FileURL(name),
		Domain:  valueobjects.DomainOf(valueobjects.FileScheme),
	}, nil
}

func (e *Extractor) truncate(s string) string {
	return valueobjects.Truncate(s, e.opts.MaxContentLength)
}

var errTooLarge = errors.New("content exceeds size limit")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, errTooLarge
	}
	return buf.Bytes(), nil
}

func isHTML(mt *mimetype.MIME, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	return mt != nil && (mt.Is("text/html") || mt.Is("application/xhtml+xml"))
}

func hasExt(name string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func resolveImage(pageURL, image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return image
	}
	ref, err := url.Parse(image)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
