package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/area-service/internal/config"
	"github.com/spec-kit/area-service/internal/observability"
	"github.com/spec-kit/area-service/internal/session"
)

// ConnectionHandler receives connection lifecycle callbacks from the gateway.
type ConnectionHandler interface {
	OnConnect(conn session.ConnID)
	OnAuthenticate(ctx context.Context, conn session.ConnID, rawToken string)
	OnDisconnect(conn session.ConnID)
}

// Gateway terminates websocket connections on the fiber app and implements
// Pusher on top of per-connection send queues.
type Gateway struct {
	cfg     config.RealtimeConfig
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	clients map[session.ConnID]*client
}

// NewGateway constructs a gateway.
func NewGateway(cfg config.RealtimeConfig, logger *zap.Logger, metrics *observability.Metrics) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Gateway{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		clients: make(map[session.ConnID]*client),
	}
}

// Push implements Pusher. It never blocks on a slow connection.
func (g *Gateway) Push(conn session.ConnID, event string, payload []byte) error {
	g.mu.RLock()
	cl, ok := g.clients[conn]
	g.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}

	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	return cl.enqueue(frame)
}

// Len returns the number of open connections.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// RequireUpgrade rejects plain HTTP requests on the websocket route.
func (g *Gateway) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the fiber handler serving websocket connections.
func (g *Gateway) Handler(h ConnectionHandler) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		g.serve(conn, h)
	}, websocket.Config{
		Origins:          g.cfg.AllowedOrigins,
		HandshakeTimeout: g.cfg.HandshakeTimeout(),
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	})
}

func (g *Gateway) serve(conn *websocket.Conn, h ConnectionHandler) {
	cl := newClient(session.ConnID(uuid.NewString()), g.cfg.SendQueueSize)
	log := g.logger.With(zap.String("conn_id", string(cl.id)))

	g.mu.Lock()
	g.clients[cl.id] = cl
	g.mu.Unlock()
	g.metrics.ConnectionOpened()
	h.OnConnect(cl.id)

	writerDone := make(chan struct{})
	go g.writeLoop(conn, cl, log, writerDone)

	defer func() {
		g.mu.Lock()
		delete(g.clients, cl.id)
		g.mu.Unlock()
		cl.close()

		h.OnDisconnect(cl.id)
		<-writerDone
		g.metrics.ConnectionClosed()
		log.Debug("realtime connection closed")
	}()

	if g.cfg.ReadLimitBytes > 0 {
		conn.SetReadLimit(g.cfg.ReadLimitBytes)
	}

	// The connection is hijacked from the request, so it gets its own context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("realtime read failed", zap.Error(err))
			}
			return
		}
		g.dispatch(ctx, cl, h, data)
	}
}

func (g *Gateway) dispatch(ctx context.Context, cl *client, h ConnectionHandler, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.sendError(cl, CodeBadJSON, "invalid JSON")
		return
	}

	switch env.Event {
	case EventAuthenticate:
		var token string
		if len(env.Data) > 0 {
			// non-string data is treated as a missing token
			_ = json.Unmarshal(env.Data, &token)
		}
		h.OnAuthenticate(ctx, cl.id, strings.TrimSpace(token))
	default:
		g.sendError(cl, CodeUnsupportedEvent, "unsupported event: "+env.Event)
	}
}

func (g *Gateway) sendError(cl *client, code, message string) {
	frame, err := encodeEnvelope(EventError, errorPayload(code, message))
	if err != nil {
		return
	}
	_ = cl.enqueue(frame)
}

func (g *Gateway) writeLoop(conn *websocket.Conn, cl *client, log *zap.Logger, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-cl.done:
			return
		case frame := <-cl.send:
			if timeout := g.cfg.WriteTimeout(); timeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(timeout))
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Info("realtime write failed", zap.Error(err))
				cl.close()
				// unblocks the read loop
				_ = conn.Close()
				return
			}
		}
	}
}
