package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates supported event identifiers. The value doubles as the
// realtime message name pushed to clients.
type EventKind string

const (
	EventAreaAdded   EventKind = "area-added"
	EventAreaUpdated EventKind = "area-updated"
	EventAreaDeleted EventKind = "area-deleted"
)

// AreaKinds lists the kinds relayed to area owners.
var AreaKinds = []EventKind{EventAreaAdded, EventAreaUpdated, EventAreaDeleted}

// Event represents a domain mutation announced after it was committed.
type Event struct {
	ID        string          `json:"id"`
	Kind      EventKind       `json:"kind"`
	OwnerID   string          `json:"owner_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent builds an event with a fresh ID and timestamp. payload must already
// be the serialized snapshot sent to clients.
func NewEvent(kind EventKind, ownerID string, payload json.RawMessage) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
