package valueobjects

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	pkgerrors "eden-backend/pkg/errors"
)

// FileScheme prefixes the synthetic URLs given to uploaded files.
const FileScheme = "file://"

// NormalizeURLInput trims a user supplied URL and checks it is http(s).
func NormalizeURLInput(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", pkgerrors.NewValidationError("url is required")
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "http") {
		return "", pkgerrors.NewValidationError("invalid URL: " + trimmed)
	}
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", pkgerrors.NewValidationError("invalid URL: " + trimmed)
	}
	return trimmed, nil
}

// DomainOf returns the lower-cased host of rawURL without a leading "www.".
// Synthetic file URLs map to "local file".
func DomainOf(rawURL string) string {
	if strings.HasPrefix(rawURL, FileScheme) {
		return "local file"
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// FileURL builds the synthetic URL stored for an uploaded file.
func FileURL(filename string) string {
	return FileScheme + path.Base(strings.ReplaceAll(filename, "\\", "/"))
}

// Truncate caps s at max characters (runes).
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
