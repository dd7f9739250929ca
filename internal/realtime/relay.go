package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/area-service/internal/api/dto"
	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/domain"
	"github.com/spec-kit/area-service/internal/events"
	"github.com/spec-kit/area-service/internal/observability"
	"github.com/spec-kit/area-service/internal/session"
	apperrors "github.com/spec-kit/area-service/pkg/util/errorutil"
)

// Pusher delivers one named message to one connection.
type Pusher interface {
	Push(conn session.ConnID, event string, payload []byte) error
}

// TokenVerifier validates fresh access tokens.
type TokenVerifier interface {
	DecodeFreshAccess(raw string) (*auth.Claims, error)
}

// ConnState is the relay's view of a connection.
type ConnState uint8

const (
	StateConnected ConnState = iota + 1
	StateAuthenticated
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// RelayConfig bundles relay dependencies.
type RelayConfig struct {
	Tokens   TokenVerifier
	Users    auth.UserDirectory
	Registry *session.Registry
	Pusher   Pusher
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Relay links authenticated connections to users and fans domain events out
// to every connection of the affected owner.
type Relay struct {
	tokens   TokenVerifier
	users    auth.UserDirectory
	registry *session.Registry
	pusher   Pusher
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	states map[session.ConnID]ConnState
}

// NewRelay constructs a relay.
func NewRelay(cfg RelayConfig) *Relay {
	r := &Relay{
		tokens:   cfg.Tokens,
		users:    cfg.Users,
		registry: cfg.Registry,
		pusher:   cfg.Pusher,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		states:   make(map[session.ConnID]ConnState),
	}
	if r.registry == nil {
		r.registry = session.NewRegistry()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Subscribe registers the relay for every area event kind.
func (r *Relay) Subscribe(d events.Dispatcher) {
	for _, kind := range events.AreaKinds {
		d.Subscribe(kind, r.OnDomainEvent)
	}
}

// OnConnect records a new unauthenticated connection.
func (r *Relay) OnConnect(conn session.ConnID) {
	r.mu.Lock()
	r.states[conn] = StateConnected
	r.mu.Unlock()

	r.logger.Debug("realtime connection opened", zap.String("conn_id", string(conn)))
}

// OnAuthenticate validates rawToken and, on success, links conn to the token
// owner. Failures are reported to the connection only; the connection stays
// open and unlinked.
func (r *Relay) OnAuthenticate(ctx context.Context, conn session.ConnID, rawToken string) {
	if rawToken == "" {
		r.metrics.RecordHandshake(observability.HandshakeMissingToken)
		r.reject(conn, auth.ErrTokenMissing, "")
		return
	}

	claims, err := r.tokens.DecodeFreshAccess(rawToken)
	if err != nil {
		r.metrics.RecordHandshake(observability.HandshakeInvalidToken)
		r.logger.Debug("realtime authentication rejected",
			zap.String("conn_id", string(conn)),
			zap.Error(err))
		r.reject(conn, auth.ErrTokenMalformed, "authentication failed")
		return
	}

	user, err := r.users.FindByIdentity(ctx, claims.Identity)
	if err != nil {
		r.metrics.RecordHandshake(observability.HandshakeUnknownUser)
		if !errors.Is(err, auth.ErrUserUnresolvable) {
			r.logger.Warn("realtime user lookup failed",
				zap.String("conn_id", string(conn)),
				zap.Error(err))
		}
		r.reject(conn, auth.ErrUserUnresolvable, "")
		return
	}

	if !r.link(conn, user) {
		r.logger.Debug("realtime connection gone before link", zap.String("conn_id", string(conn)))
		return
	}
	r.metrics.RecordHandshake(observability.HandshakeOK)

	payload, err := json.Marshal(dto.NewUserProfile(user))
	if err != nil {
		r.logger.Error("encode user profile", zap.Error(err))
		return
	}
	if err := r.pusher.Push(conn, EventAuthenticated, payload); err != nil {
		r.logger.Debug("push authenticated failed",
			zap.String("conn_id", string(conn)),
			zap.Error(err))
	}
}

// link creates the association unless the connection was dropped while the
// user lookup was in flight.
func (r *Relay) link(conn session.ConnID, user *domain.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.states[conn]; !ok {
		return false
	}
	r.registry.Link(conn, user.ID)
	r.states[conn] = StateAuthenticated
	r.metrics.SetLinked(r.registry.Len())
	return true
}

// reject pushes an authenticate-error built from cause. A non-empty message
// replaces the default one so token failures stay generic.
func (r *Relay) reject(conn session.ConnID, cause error, message string) {
	de := apperrors.ToDomainError(auth.ToHTTPError(cause))
	if message == "" {
		message = de.Message
	}
	if err := r.pusher.Push(conn, EventAuthenticateError, errorPayload(de.Code, message)); err != nil {
		r.logger.Debug("push authenticate-error failed",
			zap.String("conn_id", string(conn)),
			zap.Error(err))
	}
}

// OnDomainEvent pushes the event payload to every connection linked to the
// event owner. A failed push never stops delivery to the other connections.
func (r *Relay) OnDomainEvent(_ context.Context, event events.Event) error {
	conns := r.registry.ConnectionsOf(event.OwnerID)
	if len(conns) == 0 {
		r.metrics.RecordDropped(string(event.Kind))
		return nil
	}

	for _, conn := range conns {
		err := r.pusher.Push(conn, string(event.Kind), event.Payload)
		r.metrics.RecordPush(string(event.Kind), err == nil)
		if err != nil {
			r.logger.Warn("realtime push failed",
				zap.String("conn_id", string(conn)),
				zap.String("event_kind", string(event.Kind)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
	return nil
}

// OnDisconnect removes every trace of conn. Calling it twice is harmless.
func (r *Relay) OnDisconnect(conn session.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, conn)
	if userID, ok := r.registry.UserOf(conn); ok {
		r.registry.Unlink(conn, userID)
		r.metrics.SetLinked(r.registry.Len())
	}
}

// State reports the relay's view of conn.
func (r *Relay) State(conn session.ConnID) (ConnState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[conn]
	return s, ok
}
