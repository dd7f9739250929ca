package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/config"
	"github.com/spec-kit/area-service/internal/repository"
	apperrors "github.com/spec-kit/area-service/pkg/util/errorutil"
)

type memoryRevoker struct {
	mu  sync.Mutex
	ttl map[string]time.Duration
}

func (r *memoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ttl[jti]
	return ok, nil
}

func (r *memoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ttl == nil {
		r.ttl = map[string]time.Duration{}
	}
	r.ttl[jti] = ttl
	return nil
}

func strPtr(s string) *string { return &s }

func newAuthService(t *testing.T) (*AuthService, *memoryRevoker) {
	t.Helper()
	revoker := &memoryRevoker{}
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "service-test-secret-at-least-32-bytes",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  24,
		BcryptCost:            4,
	}, AuthDependencies{
		UserRepo: repository.NewMemoryUserRepository(),
		Revoker:  revoker,
	})
	return svc, revoker
}

func registerAlice(t *testing.T, svc *AuthService) {
	t.Helper()
	_, err := svc.Register(context.Background(), RegisterInput{
		Username:  strPtr("alice"),
		Password:  strPtr("wonderland"),
		FirstName: strPtr("Alice"),
		LastName:  strPtr("Liddell"),
	})
	require.NoError(t, err)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	registerAlice(t, svc)

	res, err := svc.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)
	assert.True(t, res.RefreshExpiresAt.After(res.AccessExpiresAt))

	claims, err := svc.TokenManager().DecodeFreshAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Identity)

	user, err := svc.FindByIdentity(ctx, claims.Identity)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username:  strPtr("   "),
		FirstName: strPtr("Alice"),
	})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "user-add-failed", de.Code)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Contains(t, de.Details, "username")
	assert.Contains(t, de.Details, "password")
	assert.Contains(t, de.Details, "last_name")
	assert.NotContains(t, de.Details, "first_name")
}

func TestAuthService_DuplicateUsername(t *testing.T) {
	svc, _ := newAuthService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username:  strPtr("alice"),
		Password:  strPtr("x"),
		FirstName: strPtr("A"),
		LastName:  strPtr("B"),
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, "user-already-exists", apperrors.ToDomainError(err).Code)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, _ := newAuthService(t)
	registerAlice(t, svc)

	for _, tt := range []struct{ name, username, password string }{
		{"unknown user", "bob", "wonderland"},
		{"wrong password", "alice", "looking-glass"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.Equal(t, "user-login-failed", apperrors.ToDomainError(err).Code)
		})
	}
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	svc, revoker := newAuthService(t)
	ctx := context.Background()
	registerAlice(t, svc)

	res, err := svc.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)

	access, _, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	_, err = svc.TokenManager().DecodeFreshAccess(access)
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, res.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenTypeMismatch)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken))
	require.Len(t, revoker.ttl, 1)
	for _, ttl := range revoker.ttl {
		assert.InDelta(t, (24 * time.Hour).Seconds(), ttl.Seconds(), 5)
	}

	_, _, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestAuthService_FindByIdentityUnknown(t *testing.T) {
	svc, _ := newAuthService(t)

	for _, identity := range []string{"alice", "8f8c0a4e-8a8b-4b7e-9a4e-0c0e7f6b1a22"} {
		_, err := svc.FindByIdentity(context.Background(), identity)
		assert.ErrorIs(t, err, auth.ErrUserUnresolvable)
	}
}
