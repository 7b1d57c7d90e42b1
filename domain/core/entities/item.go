package entities

import (
	"strings"

	"github.com/google/uuid"

	"eden-backend/domain/core/valueobjects"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/utils"
)

// SavedItem is the durable unit of captured knowledge.
type SavedItem struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	URL               string            `json:"url"`
	Domain            string            `json:"domain"`
	Title             string            `json:"title"`
	Content           string            `json:"content"`
	Summary           string            `json:"summary"`
	Tags              []string          `json:"tags"`
	Concepts          []string          `json:"concepts"`
	Favicon           string            `json:"favicon,omitempty"`
	ImageURL          string            `json:"imageUrl,omitempty"`
	Connections       []string          `json:"connections"`
	ConnectionReasons map[string]string `json:"connectionReasons"`
	SavedAt           int64             `json:"savedAt"`
	LastAccessed      int64             `json:"lastAccessed"`
	IsRead            bool              `json:"isRead"`
	ReadingProgress   int               `json:"readingProgress"`
	Notes             string            `json:"notes"`
	Highlights        []string          `json:"highlights"`
	ExpiresAt         *int64            `json:"expiresAt"`

	// Version is the optimistic-concurrency counter maintained by the stores.
	Version int `json:"version"`
}

// NewItemParams carries the extracted and analyzed data for a new item.
type NewItemParams struct {
	UserID   string
	URL      string
	Title    string
	Content  string
	Summary  string
	Tags     []string
	Concepts []string
	Favicon  string
	ImageURL string
	Notes    string
}

// NewSavedItem builds a fresh item with a new id. maxContent caps the content.
func NewSavedItem(p NewItemParams, maxContent int) (*SavedItem, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, pkgerrors.NewValidationError("user id is required")
	}
	if strings.TrimSpace(p.URL) == "" {
		return nil, pkgerrors.NewValidationError("url is required")
	}

	now := utils.NowMillis()
	item := &SavedItem{
		ID:                uuid.New().String(),
		UserID:            p.UserID,
		URL:               p.URL,
		Domain:            valueobjects.DomainOf(p.URL),
		Title:             strings.TrimSpace(p.Title),
		Content:           valueobjects.Truncate(p.Content, maxContent),
		Summary:           p.Summary,
		Tags:              nonNil(p.Tags),
		Concepts:          nonNil(p.Concepts),
		Favicon:           p.Favicon,
		ImageURL:          p.ImageURL,
		Connections:       []string{},
		ConnectionReasons: map[string]string{},
		SavedAt:           now,
		LastAccessed:      now,
		Notes:             p.Notes,
		Highlights:        []string{},
	}
	if item.Title == "" {
		item.Title = item.Domain
	}
	return item, nil
}

// HasConnection reports whether id is among the item's connections.
func (i *SavedItem) HasConnection(id string) bool {
	for _, c := range i.Connections {
		if c == id {
			return true
		}
	}
	return false
}

// AddConnection links the item to id. It is idempotent: an existing
// connection keeps its position and only gains a reason if it had none.
// Returns true when the item changed.
func (i *SavedItem) AddConnection(id, reason string) bool {
	if id == "" || id == i.ID {
		return false
	}
	if i.ConnectionReasons == nil {
		i.ConnectionReasons = map[string]string{}
	}
	changed := false
	if !i.HasConnection(id) {
		i.Connections = append(i.Connections, id)
		changed = true
	}
	if reason != "" && i.ConnectionReasons[id] == "" {
		i.ConnectionReasons[id] = reason
		changed = true
	}
	return changed
}

// RemoveConnection drops id from the item's connections.
func (i *SavedItem) RemoveConnection(id string) bool {
	for idx, c := range i.Connections {
		if c == id {
			i.Connections = append(i.Connections[:idx], i.Connections[idx+1:]...)
			delete(i.ConnectionReasons, id)
			return true
		}
	}
	return false
}

// Touch refreshes LastAccessed.
func (i *SavedItem) Touch() {
	i.LastAccessed = utils.NowMillis()
}

// SetReadingProgress validates and stores the 0-100 progress.
func (i *SavedItem) SetReadingProgress(p int) error {
	if p < 0 || p > 100 {
		return pkgerrors.NewValidationError("readingProgress must be between 0 and 100")
	}
	i.ReadingProgress = p
	return nil
}

// Clone returns a deep copy so stores never share slices or maps with callers.
func (i *SavedItem) Clone() *SavedItem {
	if i == nil {
		return nil
	}
	c := *i
	c.Tags = append([]string{}, i.Tags...)
	c.Concepts = append([]string{}, i.Concepts...)
	c.Connections = append([]string{}, i.Connections...)
	c.Highlights = append([]string{}, i.Highlights...)
	c.ConnectionReasons = make(map[string]string, len(i.ConnectionReasons))
	for k, v := range i.ConnectionReasons {
		c.ConnectionReasons[k] = v
	}
	if i.ExpiresAt != nil {
		exp := *i.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
