package realtime

import (
	"sync"

	"github.com/spec-kit/area-service/internal/session"
)

// client is one live websocket connection as seen by the gateway.
//
// send is never closed by the gateway; done signals shutdown instead so that
// concurrent pushers cannot panic on a closed channel.
type client struct {
	id   session.ConnID
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id session.ConnID, queueSize int) *client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &client{
		id:   id,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// enqueue hands a frame to the writer without blocking.
func (c *client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionNotFound
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// close is idempotent.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
