package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"Access-Token", "access-token"}, cfg.Auth.AccessTokenHeaders)
	assert.Equal(t, []string{"Refresh-Token", "refresh-token"}, cfg.Auth.RefreshTokenHeaders)
	assert.Equal(t, []string{"access_token"}, cfg.Auth.AccessTokenQueryNames)
	assert.Equal(t, []string{"refresh_token"}, cfg.Auth.RefreshTokenQueryNames)
	assert.Equal(t, 5, cfg.API.MaxPaginatedLimit)
	assert.Zero(t, cfg.Auth.FreshWindow())
}

func TestLoad_TokenLocationLists(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_HEADERS", " X-Access , ,x-access ")
	t.Setenv("AUTH_ACCESS_TOKEN_QUERY", "token,access_token")
	t.Setenv("AUTH_ACCESS_FRESH_MINUTES", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"X-Access", "x-access"}, cfg.Auth.AccessTokenHeaders)
	assert.Equal(t, []string{"token", "access_token"}, cfg.Auth.AccessTokenQueryNames)
	assert.Equal(t, 10*time.Minute, cfg.Auth.FreshWindow())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MongoDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MONGO")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_CORSAndLimit(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.API.CORSAllowedOrigins)

	t.Setenv("MAX_PAGINATED_LIMIT", "-1")
	_, err = Load()
	assert.Error(t, err)
}
