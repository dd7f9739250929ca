package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenManager issues and validates signed identity tokens.
type TokenManager struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	freshWindow time.Duration
	now         func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithFreshWindow makes access tokens carry an epoch freshness claim valid
// for d instead of the boolean form.
func WithFreshWindow(d time.Duration) TokenOption {
	return func(tm *TokenManager) {
		tm.freshWindow = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	tm := &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Claims describes the JWT payload.
type Claims struct {
	Identity string     `json:"identity"`
	Kind     TokenKind  `json:"type"`
	Fresh    *Freshness `json:"fresh,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccess signs a fresh access token for identity.
func (tm *TokenManager) IssueAccess(identity string) (string, time.Time, error) {
	fresh := FreshBool(true)
	if tm.freshWindow > 0 {
		fresh = FreshUntil(tm.now().Add(tm.freshWindow))
	}
	return tm.issue(identity, TokenAccess, &fresh, tm.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for identity.
func (tm *TokenManager) IssueRefresh(identity string) (string, time.Time, error) {
	return tm.issue(identity, TokenRefresh, nil, tm.refreshTTL)
}

func (tm *TokenManager) issue(identity string, kind TokenKind, fresh *Freshness, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Identity: identity,
		Kind:     kind,
		Fresh:    fresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := tm.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (tm *TokenManager) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode validates the signature, expiry and kind of a raw token.
func (tm *TokenManager) Decode(raw string, expected TokenKind) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Identity == "" {
		return nil, ErrTokenMalformed
	}
	if claims.Kind != expected {
		return nil, ErrTokenTypeMismatch
	}
	return claims, nil
}

// VerifyFresh fails with ErrTokenNotFresh unless the freshness claim is
// true or an epoch that has not passed yet.
func (tm *TokenManager) VerifyFresh(claims *Claims) error {
	if claims == nil || claims.Fresh == nil {
		return ErrTokenNotFresh
	}
	if !claims.Fresh.IsFreshAt(tm.now()) {
		return ErrTokenNotFresh
	}
	return nil
}

// DecodeFreshAccess decodes raw as an access token and checks freshness.
func (tm *TokenManager) DecodeFreshAccess(raw string) (*Claims, error) {
	claims, err := tm.Decode(raw, TokenAccess)
	if err != nil {
		return nil, err
	}
	if err := tm.VerifyFresh(claims); err != nil {
		return claims, err
	}
	return claims, nil
}

// RefreshAccess mints a new access token for the identity of a valid refresh token.
func (tm *TokenManager) RefreshAccess(rawRefresh string) (string, time.Time, *Claims, error) {
	claims, err := tm.Decode(rawRefresh, TokenRefresh)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	token, exp, err := tm.IssueAccess(claims.Identity)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, exp, claims, nil
}
