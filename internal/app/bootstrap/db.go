// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	auditstore "github.com/dalemusser/studentportal/internal/app/store/audit"
	"github.com/dalemusser/studentportal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ConnectDB initializes the Firebase Admin SDK and, when configured, the
// Mongo audit database and the Redis view-state client.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps

	var opts []option.ClientOption
	if appCfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(appCfg.FirebaseCredentialsFile))
	}
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: appCfg.FirebaseProjectID}, opts...)
	if err != nil {
		return deps, fmt.Errorf("firebase app: %w", err)
	}
	deps.FirebaseAuth, err = fbApp.Auth(ctx)
	if err != nil {
		return deps, fmt.Errorf("firebase auth client: %w", err)
	}
	logger.Info("firebase auth client ready", zap.String("project_id", appCfg.FirebaseProjectID))

	if appCfg.MongoEnabled() {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(appCfg.MongoURI))
		if err != nil {
			return deps, fmt.Errorf("mongo connect: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		err = client.Ping(pctx, readpref.Primary())
		cancel()
		if err != nil {
			_ = client.Disconnect(ctx)
			return deps, fmt.Errorf("mongo ping: %w", err)
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	} else {
		logger.Info("mongo_uri not set; audit events go to the log only")
	}

	if appCfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			if deps.MongoClient != nil {
				_ = deps.MongoClient.Disconnect(ctx)
			}
			return deps, fmt.Errorf("redis ping: %w", err)
		}
		deps.Redis = rdb
		logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr), zap.Int("db", appCfg.RedisDB))
	}

	return deps, nil
}

// EnsureSchema creates the audit trail indexes when Mongo is configured.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := auditstore.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		logger.Error("audit index setup failed", zap.Error(err))
		return fmt.Errorf("ensure audit indexes: %w", err)
	}
	return nil
}
