package realtime

import (
	"encoding/json"
	"errors"

	"github.com/spec-kit/area-service/internal/api/dto"
)

// Message names exchanged with clients. Domain events are pushed under their
// own kind, e.g. "area-added".
const (
	EventAuthenticate      = "authenticate"
	EventAuthenticated     = "authenticated"
	EventAuthenticateError = "authenticate-error"
	EventError             = "error"
)

// Error codes carried in "error" messages.
const (
	CodeUnsupportedEvent = "unsupported-event"
	CodeBadJSON          = "bad-json"
)

var (
	ErrConnectionNotFound = errors.New("realtime: connection not found")
	ErrSendQueueFull      = errors.New("realtime: send queue full")
)

// Envelope is the JSON text frame used in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEnvelope(event string, payload []byte) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: payload})
}

func errorPayload(code, message string) []byte {
	b, _ := json.Marshal(dto.ErrorPayload{Code: code, Message: message})
	return b
}
