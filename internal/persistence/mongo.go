package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spec-kit/area-service/internal/config"
)

const mongoConnectAttempts = 3

// Collection names used by the document store.
const (
	UsersCollection = "users"
	AreasCollection = "areas"
)

// Mongo wraps the mongo client and the service database.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongo connects to MongoDB, retrying a few times to ride out cold starts.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Mongo, error) {
	timeout := time.Duration(cfg.ConnectTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("open mongo client: %w", err)
	}

	var pingErr error
	for attempt := 1; attempt <= mongoConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		pingErr = client.Ping(pingCtx, readpref.Primary())
		cancel()
		if pingErr == nil {
			break
		}
		logger.Warn("mongo ping failed", zap.Int("attempt", attempt), zap.Error(pingErr))
		if attempt < mongoConnectAttempts {
			select {
			case <-ctx.Done():
				_ = client.Disconnect(context.Background())
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
	if pingErr != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", pingErr)
	}

	logger.Info("connected to mongo", zap.String("database", cfg.Database))
	return &Mongo{Client: client, DB: client.Database(cfg.Database)}, nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func (m *Mongo) EnsureIndexes(ctx context.Context, logger *zap.Logger) error {
	if m == nil || m.DB == nil {
		return errors.New("mongo database not configured")
	}

	_, err := m.DB.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = m.DB.Collection(AreasCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create areas index: %w", err)
	}

	logger.Info("mongo indexes ensured")
	return nil
}

// Ping verifies MongoDB connectivity.
func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errors.New("mongo client not configured")
	}
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) {
	if m != nil && m.Client != nil {
		_ = m.Client.Disconnect(ctx)
	}
}
