package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/config"
	"github.com/spec-kit/area-service/internal/domain"
	"github.com/spec-kit/area-service/internal/repository"
)

// RegisterInput carries the raw registration fields; nil means absent.
type RegisterInput struct {
	Username  *string
	Password  *string
	FirstName *string
	LastName  *string
}

// LoginResult is a verified user with a fresh token pair.
type LoginResult struct {
	User             *domain.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService coordinates registration, login and token flows. It is also the
// user directory behind token identities.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	revoker    auth.Revoker
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenManager
	Revoker  auth.Revoker
	Logger   *zap.Logger
}

// NewAuthService builds the service. A token manager is derived from cfg when
// deps.Tokens is nil.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   deps.Tokens,
		revoker:    deps.Revoker,
		bcryptCost: cfg.BcryptCost,
		logger:     deps.Logger,
	}
	if s.tokenMgr == nil {
		s.tokenMgr = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(),
			auth.WithFreshWindow(cfg.FreshWindow()))
	}
	if s.revoker == nil {
		s.revoker = auth.NoopRevoker{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register validates input and creates a new account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	problems := fieldErrors{}

	username, msg := requireString("User username", in.Username)
	if msg != "" {
		problems.add("username", "user-username-invalid", msg)
	}
	password := ""
	if in.Password == nil || *in.Password == "" {
		problems.add("password", "user-password-invalid", "User password cannot be empty")
	} else {
		password = *in.Password
	}
	firstName, msg := requireString("User first name", in.FirstName)
	if msg != "" {
		problems.add("first_name", "user-first-name-invalid", msg)
	}
	lastName, msg := requireString("User last name", in.LastName)
	if msg != "" {
		problems.add("last_name", "user-last-name-invalid", msg)
	}
	if err := problems.err("user-add-failed", "User add failed"); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists.Wrap(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues a fresh access token with a refresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserLoginFailed.Wrap(err)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrUserLoginFailed.Wrap(err)
	}

	access, accessExp, err := s.tokenMgr.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokenMgr.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh mints a new fresh access token from a valid, unrevoked refresh token.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (string, time.Time, error) {
	token, exp, claims, err := s.tokenMgr.RefreshAccess(rawRefresh)
	if err != nil {
		return "", time.Time{}, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", time.Time{}, auth.ErrTokenRevoked
	}
	if _, err := s.FindByIdentity(ctx, claims.Identity); err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Logout revokes a refresh token for the rest of its lifetime. An already
// expired token has nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	claims, err := s.tokenMgr.Decode(rawRefresh, auth.TokenRefresh)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil
		}
		return err
	}

	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.Info("refresh token revoked", zap.String("user_id", claims.Identity))
	return nil
}

// FindByIdentity resolves a token identity (the user ID) to a user.
func (s *AuthService) FindByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	if _, err := uuid.Parse(identity); err != nil {
		return nil, auth.ErrUserUnresolvable
	}
	user, err := s.users.GetByID(ctx, identity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrUserUnresolvable
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
