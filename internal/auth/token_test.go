package auth

import (
	"encoding/json"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-bytes-long"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(clock *fakeClock, opts ...TokenOption) *TokenManager {
	opts = append(opts, WithClock(clock.Now))
	return NewTokenManager(testSecret, 15*time.Minute, 24*time.Hour, opts...)
}

func TestTokenManager_AccessRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock)

	for _, identity := range []string{"alice", "0b7f5f8e-3a59-4c3e-9d7e-1f0f4b2f6a11", "ünïcødé"} {
		t.Run(identity, func(t *testing.T) {
			raw, exp, err := tm.IssueAccess(identity)
			require.NoError(t, err)
			assert.WithinDuration(t, clock.t.Add(15*time.Minute), exp, time.Second)

			claims, err := tm.Decode(raw, TokenAccess)
			require.NoError(t, err)
			assert.Equal(t, identity, claims.Identity)
			assert.Equal(t, TokenAccess, claims.Kind)
			require.NotNil(t, claims.Fresh)
			fresh, ok := claims.Fresh.Bool()
			assert.True(t, ok)
			assert.True(t, fresh)
			_, isEpoch := claims.Fresh.Epoch()
			assert.False(t, isEpoch)
			assert.NoError(t, tm.VerifyFresh(claims))
		})
	}
}

func TestTokenManager_TypeMismatch(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock)

	access, _, err := tm.IssueAccess("alice")
	require.NoError(t, err)
	refresh, _, err := tm.IssueRefresh("alice")
	require.NoError(t, err)

	_, err = tm.Decode(refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = tm.Decode(access, TokenRefresh)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	claims, err := tm.Decode(refresh, TokenRefresh)
	require.NoError(t, err)
	assert.Nil(t, claims.Fresh)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_Malformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock)

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Decode("not-a-jwt", TokenAccess)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret", time.Minute, time.Hour)
		raw, _, err := other.IssueAccess("alice")
		require.NoError(t, err)

		_, err = tm.Decode(raw, TokenAccess)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{Identity: "alice", Kind: TokenAccess})
		raw, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tm.Decode(raw, TokenAccess)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := tm.Decode("", TokenAccess)
		assert.ErrorIs(t, err, ErrTokenMissing)
	})
}

func TestTokenManager_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock)

	raw, _, err := tm.IssueAccess("alice")
	require.NoError(t, err)

	clock.t = clock.t.Add(16 * time.Minute)
	_, err = tm.Decode(raw, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_VerifyFresh(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tm := newTestManager(clock)
	now := clock.t.Unix()

	tests := []struct {
		name    string
		fresh   string
		wantErr bool
	}{
		{"bool true", `true`, false},
		{"bool false", `false`, true},
		{"epoch in future", jsonInt(now + 60), false},
		{"epoch equals now", jsonInt(now), false},
		{"epoch in past", jsonInt(now - 1), true},
		{"string", `"true"`, true},
		{"float", `1700000060.5`, true},
		{"object", `{"until":1}`, true},
		{"null", `null`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var claims Claims
			payload := `{"identity":"alice","type":"access","fresh":` + tt.fresh + `}`
			require.NoError(t, json.Unmarshal([]byte(payload), &claims))

			err := tm.VerifyFresh(&claims)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenNotFresh)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		assert.ErrorIs(t, tm.VerifyFresh(&Claims{Identity: "alice", Kind: TokenAccess}), ErrTokenNotFresh)
	})
}

func TestTokenManager_EpochFreshnessSurvivesSigning(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock, WithFreshWindow(5*time.Minute))

	raw, _, err := tm.IssueAccess("alice")
	require.NoError(t, err)

	claims, err := tm.Decode(raw, TokenAccess)
	require.NoError(t, err)
	require.NotNil(t, claims.Fresh)

	epoch, ok := claims.Fresh.Epoch()
	require.True(t, ok)
	assert.Equal(t, clock.t.Add(5*time.Minute).Unix(), epoch)
	assert.NoError(t, tm.VerifyFresh(claims))

	clock.t = clock.t.Add(6 * time.Minute)
	claims, err = tm.Decode(raw, TokenAccess)
	require.NoError(t, err)
	assert.ErrorIs(t, tm.VerifyFresh(claims), ErrTokenNotFresh)

	_, err = tm.DecodeFreshAccess(raw)
	assert.ErrorIs(t, err, ErrTokenNotFresh)
}

func TestTokenManager_StaleBooleanToken(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock)

	stale := FreshBool(false)
	raw, err := tm.sign(&Claims{
		Identity: "alice",
		Kind:     TokenAccess,
		Fresh:    &stale,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
		},
	})
	require.NoError(t, err)

	claims, err := tm.Decode(raw, TokenAccess)
	require.NoError(t, err)
	fresh, ok := claims.Fresh.Bool()
	assert.True(t, ok)
	assert.False(t, fresh)

	_, err = tm.DecodeFreshAccess(raw)
	assert.ErrorIs(t, err, ErrTokenNotFresh)
}

func TestTokenManager_RefreshAccess(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(clock)

	refresh, _, err := tm.IssueRefresh("alice")
	require.NoError(t, err)

	// the access token lifetime is long gone but the refresh token is still valid
	clock.t = clock.t.Add(2 * time.Hour)

	access, _, refreshClaims, err := tm.RefreshAccess(refresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", refreshClaims.Identity)

	claims, err := tm.DecodeFreshAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity)

	t.Run("access token is rejected", func(t *testing.T) {
		_, _, _, err := tm.RefreshAccess(access)
		assert.ErrorIs(t, err, ErrTokenTypeMismatch)
	})

	t.Run("expired refresh token is rejected", func(t *testing.T) {
		clock.t = clock.t.Add(25 * time.Hour)
		_, _, _, err := tm.RefreshAccess(refresh)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
