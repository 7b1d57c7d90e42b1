package batch

import "eden-backend/domain/core/entities"

// EventType names a progress event.
type EventType string

const (
	EventStart       EventType = "start"
	EventItem        EventType = "item"
	EventConnections EventType = "connections"
	EventError       EventType = "error"
	EventComplete    EventType = "complete"
)

// Event is one progress update. Every event carries the running counters so
// clients never infer state from ordering.
type Event struct {
	Type              EventType           `json:"type"`
	Total             int                 `json:"total"`
	Success           int                 `json:"success"`
	Failed            int                 `json:"failed"`
	Item              *entities.SavedItem `json:"item,omitempty"`
	ItemID            string              `json:"itemId,omitempty"`
	Connections       []string            `json:"connections,omitempty"`
	ConnectionReasons map[string]string   `json:"connectionReasons,omitempty"`
	URL               string              `json:"url,omitempty"`
	Message           string              `json:"message,omitempty"`
	Source            string              `json:"source,omitempty"`
}

// Result holds the final counters of a batch. Success+Failed == Total.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}
