package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_RegistrationOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var calls []string
	d.Subscribe(EventAreaAdded, func(context.Context, Event) error {
		calls = append(calls, "first")
		return nil
	})
	d.Subscribe(EventAreaAdded, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventAreaDeleted, func(context.Context, Event) error {
		calls = append(calls, "other kind")
		return nil
	})

	d.Publish(context.Background(), NewEvent(EventAreaAdded, "alice", []byte(`{}`)))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_FailingHandlersAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var delivered []string
	d.Subscribe(EventAreaUpdated, func(context.Context, Event) error {
		return errors.New("subscriber down")
	})
	d.Subscribe(EventAreaUpdated, func(context.Context, Event) error {
		panic("bad subscriber")
	})
	d.Subscribe(EventAreaUpdated, func(_ context.Context, e Event) error {
		delivered = append(delivered, e.OwnerID)
		return nil
	})

	require.NotPanics(t, func() {
		d.Publish(context.Background(), NewEvent(EventAreaUpdated, "alice", []byte(`{}`)))
	})

	assert.Equal(t, []string{"alice"}, delivered)
	assert.Equal(t, 2, logs.FilterMessage("event handler failed").Len())
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), NewEvent(EventAreaDeleted, "alice", nil))
	})
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventAreaAdded, "alice", []byte(`{"id":"a1"}`))

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventAreaAdded, e.Kind)
	assert.Equal(t, "alice", e.OwnerID)
	assert.JSONEq(t, `{"id":"a1"}`, string(e.Payload))
	assert.False(t, e.Timestamp.IsZero())
}
