package worker

import (
	"github.com/spec-kit/area-service/internal/events"
	"github.com/spec-kit/area-service/internal/realtime"
)

// StartRealtimeRelay subscribes the relay to area events so committed
// mutations reach the owner's live connections.
func StartRealtimeRelay(relay *realtime.Relay, dispatcher events.Dispatcher) {
	if relay == nil || dispatcher == nil {
		return
	}
	relay.Subscribe(dispatcher)
}
