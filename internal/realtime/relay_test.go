package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/area-service/internal/api/dto"
	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/domain"
	"github.com/spec-kit/area-service/internal/events"
	"github.com/spec-kit/area-service/internal/session"
)

const testSecret = "realtime-test-secret-at-least-32-bytes"

type pushed struct {
	conn    session.ConnID
	event   string
	payload []byte
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushed
	fail   map[session.ConnID]error
}

func (p *recordingPusher) Push(conn session.ConnID, event string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[conn]; err != nil {
		return err
	}
	p.pushes = append(p.pushes, pushed{conn: conn, event: event, payload: append([]byte(nil), payload...)})
	return nil
}

func (p *recordingPusher) all() []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushed(nil), p.pushes...)
}

func (p *recordingPusher) to(conn session.ConnID) []pushed {
	var out []pushed
	for _, push := range p.all() {
		if push.conn == conn {
			out = append(out, push)
		}
	}
	return out
}

type directory struct {
	users map[string]*domain.User
	// hook runs inside FindByIdentity before the result is returned
	hook func()
}

func (d *directory) FindByIdentity(_ context.Context, identity string) (*domain.User, error) {
	if d.hook != nil {
		d.hook()
	}
	if u, ok := d.users[identity]; ok {
		return u, nil
	}
	return nil, auth.ErrUserUnresolvable
}

var (
	alice = &domain.User{ID: "u-alice", Username: "alice", FirstName: "Alice", LastName: "Liddell"}
	bob   = &domain.User{ID: "u-bob", Username: "bob", FirstName: "Bob", LastName: "Builder"}
)

type relayFixture struct {
	relay    *Relay
	registry *session.Registry
	pusher   *recordingPusher
	users    *directory
	tokens   *auth.TokenManager
	bus      events.Dispatcher
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	f := &relayFixture{
		registry: session.NewRegistry(),
		pusher:   &recordingPusher{},
		users: &directory{users: map[string]*domain.User{
			alice.ID: alice,
			bob.ID:   bob,
		}},
		tokens: auth.NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour),
		bus:    events.NewInMemoryDispatcher(zap.NewNop()),
	}
	f.relay = NewRelay(RelayConfig{
		Tokens:   f.tokens,
		Users:    f.users,
		Registry: f.registry,
		Pusher:   f.pusher,
	})
	f.relay.Subscribe(f.bus)
	return f
}

func (f *relayFixture) accessToken(t *testing.T, identity string) string {
	t.Helper()
	raw, _, err := f.tokens.IssueAccess(identity)
	require.NoError(t, err)
	return raw
}

func decodeError(t *testing.T, payload []byte) dto.ErrorPayload {
	t.Helper()
	var out dto.ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func TestRelay_AuthenticateAndReceive(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	f.relay.OnConnect("c1")
	f.relay.OnAuthenticate(ctx, "c1", f.accessToken(t, alice.ID))

	state, ok := f.relay.State("c1")
	require.True(t, ok)
	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, []session.ConnID{"c1"}, f.registry.ConnectionsOf(alice.ID))

	got := f.pusher.to("c1")
	require.Len(t, got, 1)
	assert.Equal(t, EventAuthenticated, got[0].event)
	var profile dto.UserProfile
	require.NoError(t, json.Unmarshal(got[0].payload, &profile))
	assert.Equal(t, alice.ID, profile.ID)
	assert.Equal(t, "alice", profile.Username)

	snapshot := json.RawMessage(`{"id":"a-1","name":"Kitchen"}`)
	f.bus.Publish(ctx, events.NewEvent(events.EventAreaAdded, alice.ID, snapshot))

	got = f.pusher.to("c1")
	require.Len(t, got, 2)
	assert.Equal(t, "area-added", got[1].event)
	assert.JSONEq(t, string(snapshot), string(got[1].payload))
}

func TestRelay_AuthenticateFailures(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	refresh, _, err := f.tokens.IssueRefresh(alice.ID)
	require.NoError(t, err)
	expired := auth.NewTokenManager(testSecret, time.Minute, time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	stale, _, err := expired.IssueAccess(alice.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"missing", "", "user-not-logged-in"},
		{"garbage", "not-a-token", "user-token-invalid"},
		{"refresh token", refresh, "user-token-invalid"},
		{"expired", stale, "user-token-invalid"},
		{"unknown user", f.accessToken(t, "u-ghost"), "user-logged-in-invalid"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := session.ConnID("c-" + string(rune('a'+i)))
			f.relay.OnConnect(conn)
			f.relay.OnAuthenticate(ctx, conn, tt.token)

			got := f.pusher.to(conn)
			require.Len(t, got, 1)
			assert.Equal(t, EventAuthenticateError, got[0].event)
			assert.Equal(t, tt.code, decodeError(t, got[0].payload).Code)

			state, ok := f.relay.State(conn)
			require.True(t, ok)
			assert.Equal(t, StateConnected, state)
			_, linked := f.registry.UserOf(conn)
			assert.False(t, linked)
		})
	}

	assert.Zero(t, f.registry.Len())
}

func TestRelay_TokenFailuresShareOneMessage(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	f.relay.OnConnect("c1")
	f.relay.OnAuthenticate(ctx, "c1", "abc.def.ghi")
	f.relay.OnConnect("c2")
	f.relay.OnAuthenticate(ctx, "c2", f.accessToken(t, alice.ID)+"x")

	first := decodeError(t, f.pusher.to("c1")[0].payload)
	second := decodeError(t, f.pusher.to("c2")[0].payload)
	assert.Equal(t, first, second)
	assert.Equal(t, "authentication failed", first.Message)
}

func TestRelay_FanoutToEveryOwnerConnection(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	for _, conn := range []session.ConnID{"c1", "c2"} {
		f.relay.OnConnect(conn)
		f.relay.OnAuthenticate(ctx, conn, f.accessToken(t, alice.ID))
	}
	f.relay.OnConnect("c3")
	f.relay.OnAuthenticate(ctx, "c3", f.accessToken(t, bob.ID))

	before := len(f.pusher.all())
	snapshot := json.RawMessage(`{"id":"a-7","owner":{"id":"u-alice"}}`)
	f.bus.Publish(ctx, events.NewEvent(events.EventAreaUpdated, alice.ID, snapshot))

	delivered := f.pusher.all()[before:]
	require.Len(t, delivered, 2)
	assert.ElementsMatch(t, []session.ConnID{"c1", "c2"}, []session.ConnID{delivered[0].conn, delivered[1].conn})
	assert.Equal(t, delivered[0].payload, delivered[1].payload)
	assert.Equal(t, "area-updated", delivered[0].event)
	assert.Empty(t, f.pusher.to("c3")[1:])
}

func TestRelay_NoLinksMeansNoPushes(t *testing.T) {
	f := newRelayFixture(t)
	f.relay.OnConnect("c1")

	f.bus.Publish(context.Background(), events.NewEvent(events.EventAreaDeleted, alice.ID, json.RawMessage(`{}`)))
	assert.Empty(t, f.pusher.all())
}

func TestRelay_PushFailureIsIsolated(t *testing.T) {
	f := newRelayFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	f.relay.logger = zap.New(core)
	ctx := context.Background()

	for _, conn := range []session.ConnID{"c1", "c2"} {
		f.relay.OnConnect(conn)
		f.relay.OnAuthenticate(ctx, conn, f.accessToken(t, alice.ID))
	}
	f.pusher.fail = map[session.ConnID]error{"c1": ErrSendQueueFull}

	err := f.relay.OnDomainEvent(ctx, events.NewEvent(events.EventAreaAdded, alice.ID, json.RawMessage(`{"id":"a-1"}`)))
	require.NoError(t, err)

	got := f.pusher.to("c2")
	require.Len(t, got, 2)
	assert.Equal(t, "area-added", got[1].event)

	entries := logs.FilterMessage("realtime push failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ContextMap()["conn_id"])
}

func TestRelay_DisconnectUnlinks(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	f.relay.OnConnect("c1")
	f.relay.OnAuthenticate(ctx, "c1", f.accessToken(t, alice.ID))
	f.relay.OnDisconnect("c1")
	f.relay.OnDisconnect("c1")

	_, ok := f.relay.State("c1")
	assert.False(t, ok)
	assert.Empty(t, f.registry.ConnectionsOf(alice.ID))

	before := len(f.pusher.all())
	f.bus.Publish(ctx, events.NewEvent(events.EventAreaAdded, alice.ID, json.RawMessage(`{}`)))
	assert.Len(t, f.pusher.all(), before)
}

func TestRelay_RemainingConnectionKeepsReceiving(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	for _, conn := range []session.ConnID{"c1", "c2"} {
		f.relay.OnConnect(conn)
		f.relay.OnAuthenticate(ctx, conn, f.accessToken(t, alice.ID))
	}
	f.relay.OnDisconnect("c1")
	assert.Equal(t, []session.ConnID{"c2"}, f.registry.ConnectionsOf(alice.ID))

	before := len(f.pusher.all())
	snapshot := json.RawMessage(`{"id":"a-3","name":"Garage"}`)
	f.bus.Publish(ctx, events.NewEvent(events.EventAreaUpdated, alice.ID, snapshot))

	delivered := f.pusher.all()[before:]
	require.Len(t, delivered, 1)
	assert.Equal(t, session.ConnID("c2"), delivered[0].conn)
	assert.Equal(t, "area-updated", delivered[0].event)
	assert.JSONEq(t, string(snapshot), string(delivered[0].payload))
}

func TestRelay_DisconnectDuringLookupSkipsLink(t *testing.T) {
	f := newRelayFixture(t)
	f.users.hook = func() { f.relay.OnDisconnect("c1") }

	f.relay.OnConnect("c1")
	f.relay.OnAuthenticate(context.Background(), "c1", f.accessToken(t, alice.ID))

	assert.Zero(t, f.registry.Len())
	assert.Empty(t, f.pusher.all())
	_, ok := f.relay.State("c1")
	assert.False(t, ok)
}

func TestRelay_ReauthenticateReplacesLink(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	f.relay.OnConnect("c1")
	f.relay.OnAuthenticate(ctx, "c1", f.accessToken(t, alice.ID))
	f.relay.OnAuthenticate(ctx, "c1", f.accessToken(t, bob.ID))

	assert.Empty(t, f.registry.ConnectionsOf(alice.ID))
	assert.Equal(t, []session.ConnID{"c1"}, f.registry.ConnectionsOf(bob.ID))
}

func TestRelay_LookupErrorIsReportedAsUnresolvable(t *testing.T) {
	f := newRelayFixture(t)
	f.relay.users = failingDirectory{}

	f.relay.OnConnect("c1")
	f.relay.OnAuthenticate(context.Background(), "c1", f.accessToken(t, alice.ID))

	got := f.pusher.to("c1")
	require.Len(t, got, 1)
	assert.Equal(t, "user-logged-in-invalid", decodeError(t, got[0].payload).Code)
}

type failingDirectory struct{}

func (failingDirectory) FindByIdentity(context.Context, string) (*domain.User, error) {
	return nil, errors.New("database unavailable")
}
