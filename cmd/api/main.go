package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/area-service/internal/api/http"
	"github.com/spec-kit/area-service/internal/api/http/handlers"
	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/config"
	"github.com/spec-kit/area-service/internal/events"
	"github.com/spec-kit/area-service/internal/observability"
	"github.com/spec-kit/area-service/internal/persistence"
	"github.com/spec-kit/area-service/internal/realtime"
	"github.com/spec-kit/area-service/internal/repository"
	"github.com/spec-kit/area-service/internal/service"
	"github.com/spec-kit/area-service/internal/session"
	"github.com/spec-kit/area-service/internal/worker"
)

// store is the selected persistence backend.
type store struct {
	users  repository.UserRepository
	areas  repository.AreaRepository
	checks map[string]handlers.Pinger
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	st.checks["redis"] = redis

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL(),
		auth.WithFreshWindow(cfg.Auth.FreshWindow()))
	revoker := auth.NewRedisRevoker(redis.Client)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: st.users,
		Tokens:   tokens,
		Revoker:  revoker,
		Logger:   logger,
	})
	areaService := service.NewAreaService(service.AreaDependencies{
		AreaRepo:   st.areas,
		Dispatcher: dispatcher,
		Logger:     logger,
		MaxLimit:   cfg.API.MaxPaginatedLimit,
	})

	access := auth.Locations{Headers: cfg.Auth.AccessTokenHeaders, Query: cfg.Auth.AccessTokenQueryNames}
	refresh := auth.Locations{Headers: cfg.Auth.RefreshTokenHeaders, Query: cfg.Auth.RefreshTokenQueryNames}
	authMiddleware := auth.NewMiddleware(auth.MiddlewareConfig{
		Tokens:  tokens,
		Users:   authService,
		Revoker: revoker,
		Access:  access,
		Refresh: refresh,
		Logger:  logger,
	})

	gateway := realtime.NewGateway(cfg.Realtime, logger, metrics)
	relay := realtime.NewRelay(realtime.RelayConfig{
		Tokens:   tokens,
		Users:    authService,
		Registry: session.NewRegistry(),
		Pusher:   gateway,
		Logger:   logger,
		Metrics:  metrics,
	})
	worker.StartRealtimeRelay(relay, dispatcher)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.API.CORSAllowedOrigins,
		ExposedHeaders: []string{access.Headers[0], refresh.Headers[0]},
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, st.checks),
		Users:          handlers.NewUsersHandler(authService, access, refresh),
		Areas:          handlers.NewAreasHandler(areaService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		Gateway:        gateway,
		Relay:          relay,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		return &store{
			users:  repository.NewUserRepository(pool),
			areas:  repository.NewAreaRepository(pool),
			checks: map[string]handlers.Pinger{"postgres": pg},
			close:  pg.Close,
		}, nil

	case config.StoreDriverMongo:
		mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		if err := mg.EnsureIndexes(ctx, logger); err != nil {
			mg.Close(context.Background())
			return nil, err
		}
		return &store{
			users:  repository.NewMongoUserRepository(mg.DB.Collection(persistence.UsersCollection)),
			areas:  repository.NewMongoAreaRepository(mg.DB.Collection(persistence.AreasCollection)),
			checks: map[string]handlers.Pinger{"mongo": mg},
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				mg.Close(closeCtx)
			},
		}, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return &store{
			users:  repository.NewMemoryUserRepository(),
			areas:  repository.NewMemoryAreaRepository(),
			checks: map[string]handlers.Pinger{},
			close:  func() {},
		}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
