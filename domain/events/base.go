package events

import (
	"time"
)

// SourceBackend is the event source reported to subscribers.
const SourceBackend = "eden.backend"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// ItemSaved is raised after an item has been stored.
type ItemSaved struct {
	BaseEvent
	UserID string   `json:"user_id"`
	URL    string   `json:"url"`
	Domain string   `json:"domain"`
	Tags   []string `json:"tags"`
	Source string   `json:"source"`
}

// NewItemSaved creates an ItemSaved event. source names the capture path
// ("batch", "upload", "capture", "bookmarklet", "cli").
func NewItemSaved(itemID, userID, url, domain string, tags []string, source string, at time.Time) ItemSaved {
	return ItemSaved{
		BaseEvent: BaseEvent{AggregateID: itemID, EventType: "item.saved", Timestamp: at},
		UserID:    userID,
		URL:       url,
		Domain:    domain,
		Tags:      tags,
		Source:    source,
	}
}

// ItemsConnected is raised when symmetric edges were added for an item.
type ItemsConnected struct {
	BaseEvent
	UserID  string   `json:"user_id"`
	Targets []string `json:"targets"`
}

// NewItemsConnected creates an ItemsConnected event
func NewItemsConnected(itemID, userID string, targets []string, at time.Time) ItemsConnected {
	return ItemsConnected{
		BaseEvent: BaseEvent{AggregateID: itemID, EventType: "item.connected", Timestamp: at},
		UserID:    userID,
		Targets:   targets,
	}
}

// ItemDeleted is raised when a user deletes an item.
type ItemDeleted struct {
	BaseEvent
	UserID string `json:"user_id"`
}

// NewItemDeleted creates an ItemDeleted event
func NewItemDeleted(itemID, userID string, at time.Time) ItemDeleted {
	return ItemDeleted{
		BaseEvent: BaseEvent{AggregateID: itemID, EventType: "item.deleted", Timestamp: at},
		UserID:    userID,
	}
}
