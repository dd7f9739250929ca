package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers supported by the repository layer.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Realtime RealtimeConfig
	API      APIConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the persistence backend for users and areas.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// MongoConfig holds document store connection values.
type MongoConfig struct {
	URI               string
	Database          string
	ConnectTimeoutSec int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
//
// The token location lists are ordered: the first non-empty match wins.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLHours   int
	AccessFreshMinutes     int
	BcryptCost             int
	AccessTokenHeaders     []string
	RefreshTokenHeaders    []string
	AccessTokenQueryNames  []string
	RefreshTokenQueryNames []string
}

// RealtimeConfig tunes the websocket gateway.
type RealtimeConfig struct {
	AllowedOrigins    []string
	SendQueueSize     int
	WriteTimeoutSec   int
	ReadLimitBytes    int64
	HandshakeTimeoutS int
}

// APIConfig holds REST surface limits.
type APIConfig struct {
	MaxPaginatedLimit  int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "area-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Mongo: MongoConfig{
			URI:               getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			Database:          getEnv("MONGO_DATABASE", "odomu"),
			ConnectTimeoutSec: getEnvAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 24*30),
			AccessFreshMinutes:     getEnvAsInt("AUTH_ACCESS_FRESH_MINUTES", 0),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AccessTokenHeaders:     getEnvAsList("AUTH_ACCESS_TOKEN_HEADERS", []string{"Access-Token", "access-token"}),
			RefreshTokenHeaders:    getEnvAsList("AUTH_REFRESH_TOKEN_HEADERS", []string{"Refresh-Token", "refresh-token"}),
			AccessTokenQueryNames:  getEnvAsList("AUTH_ACCESS_TOKEN_QUERY", []string{"access_token"}),
			RefreshTokenQueryNames: getEnvAsList("AUTH_REFRESH_TOKEN_QUERY", []string{"refresh_token"}),
		},
		Realtime: RealtimeConfig{
			AllowedOrigins:    getEnvAsList("REALTIME_ALLOWED_ORIGINS", []string{"*"}),
			SendQueueSize:     getEnvAsInt("REALTIME_SEND_QUEUE", 64),
			WriteTimeoutSec:   getEnvAsInt("REALTIME_WRITE_TIMEOUT_SECONDS", 5),
			ReadLimitBytes:    int64(getEnvAsInt("REALTIME_READ_LIMIT_BYTES", 64*1024)),
			HandshakeTimeoutS: getEnvAsInt("REALTIME_HANDSHAKE_TIMEOUT_SECONDS", 10),
		},
		API: APIConfig{
			MaxPaginatedLimit:  getEnvAsInt("MAX_PAGINATED_LIMIT", 5),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("AUTH_JWT_SECRET must not be empty")
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 || c.Auth.RefreshTokenTTLHours <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if len(c.Auth.AccessTokenHeaders) == 0 || len(c.Auth.RefreshTokenHeaders) == 0 {
		return errors.New("token header lists must not be empty")
	}
	if c.API.MaxPaginatedLimit <= 0 {
		return errors.New("MAX_PAGINATED_LIMIT must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// FreshWindow returns how long an access token stays fresh when the epoch form is used.
// Zero means access tokens carry a boolean freshness claim.
func (a AuthConfig) FreshWindow() time.Duration {
	if a.AccessFreshMinutes <= 0 {
		return 0
	}
	return time.Duration(a.AccessFreshMinutes) * time.Minute
}

// WriteTimeout returns the per-frame websocket write deadline.
func (r RealtimeConfig) WriteTimeout() time.Duration {
	if r.WriteTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.WriteTimeoutSec) * time.Second
}

// HandshakeTimeout returns the websocket upgrade timeout.
func (r RealtimeConfig) HandshakeTimeout() time.Duration {
	if r.HandshakeTimeoutS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.HandshakeTimeoutS) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList parses a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
