package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/area-service/internal/domain"
)

const userKey = "auth_user"

// UserDirectory resolves a token identity to a user. It returns
// ErrUserUnresolvable when no user matches.
type UserDirectory interface {
	FindByIdentity(ctx context.Context, identity string) (*domain.User, error)
}

// MiddlewareConfig bundles middleware dependencies.
type MiddlewareConfig struct {
	Tokens  *TokenManager
	Users   UserDirectory
	Revoker Revoker
	Access  Locations
	Refresh Locations
	Logger  *zap.Logger
}

// Middleware authenticates requests with access tokens and transparently
// re-issues expired or stale access tokens from a valid refresh token.
type Middleware struct {
	tokens  *TokenManager
	users   UserDirectory
	revoker Revoker
	access  Locations
	refresh Locations
	logger  *zap.Logger
}

// NewMiddleware constructs middleware.
func NewMiddleware(cfg MiddlewareConfig) *Middleware {
	m := &Middleware{
		tokens:  cfg.Tokens,
		users:   cfg.Users,
		revoker: cfg.Revoker,
		access:  cfg.Access,
		refresh: cfg.Refresh,
		logger:  cfg.Logger,
	}
	if m.revoker == nil {
		m.revoker = NoopRevoker{}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Handle enforces authentication with header-borne tokens.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	return m.authenticate(c, m.access)
}

// HandleWithQuery also accepts tokens as query parameters. Use it only for
// endpoints reached through plain links.
func (m *Middleware) HandleWithQuery(c *fiber.Ctx) error {
	return m.authenticate(c, m.access.WithQuery())
}

func (m *Middleware) authenticate(c *fiber.Ctx, loc Locations) error {
	identity, err := m.identify(c, loc)
	if err != nil {
		return ToHTTPError(err)
	}

	user, err := m.users.FindByIdentity(c.UserContext(), identity)
	if err != nil {
		return ToHTTPError(err)
	}

	c.Locals(userKey, user)
	return c.Next()
}

func (m *Middleware) identify(c *fiber.Ctx, loc Locations) (string, error) {
	raw, err := Extract(FiberSource(c), loc)
	if err != nil {
		return "", err
	}

	claims, err := m.tokens.DecodeFreshAccess(raw)
	if err == nil {
		return claims.Identity, nil
	}
	if !errors.Is(err, ErrTokenExpired) && !errors.Is(err, ErrTokenNotFresh) {
		return "", err
	}

	identity, refreshErr := m.reissueAccess(c, loc.AllowQuery)
	if refreshErr != nil {
		m.logger.Debug("access token refresh skipped", zap.Error(refreshErr))
		return "", err
	}
	if claims != nil && claims.Identity != identity {
		return "", ErrTokenMalformed
	}
	return identity, nil
}

// reissueAccess mints a new access token from the request's refresh token and
// returns it to the caller in the primary access header.
func (m *Middleware) reissueAccess(c *fiber.Ctx, allowQuery bool) (string, error) {
	loc := m.refresh
	loc.AllowQuery = allowQuery

	raw, err := Extract(FiberSource(c), loc)
	if err != nil {
		return "", err
	}

	token, _, claims, err := m.tokens.RefreshAccess(raw)
	if err != nil {
		return "", err
	}

	revoked, err := m.revoker.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	if len(m.access.Headers) > 0 {
		c.Set(m.access.Headers[0], token)
	}
	m.logger.Debug("access token reissued", zap.String("identity", claims.Identity))
	return claims.Identity, nil
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(userKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
