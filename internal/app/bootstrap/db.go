package bootstrap

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/blobstore"
	"github.com/dalemusser/boirhub/internal/app/system/indexes"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and the document image store.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	blobs, err := blobstore.New(ctx, blobstore.Config{
		Type:      appCfg.StorageType,
		LocalPath: appCfg.StorageLocalPath,
		S3Region:  appCfg.StorageS3Region,
		S3Bucket:  appCfg.StorageS3Bucket,
		S3Prefix:  appCfg.StorageS3Prefix,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("open blob store: %w", err)
	}
	logger.Info("document storage ready", zap.String("backend", blobs.Backend()))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Blobs:         blobs,
		Runtime:       &Runtime{},
	}, nil
}

// EnsureSchema reconciles indexes and makes sure the configured admin exists.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin creates the admin user, or promotes an existing user.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created, err := users.Create(ctx, models.User{Email: email, Role: models.RoleAdmin})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		logger.Info("created admin user", zap.String("user_id", created.ID.Hex()))
		return nil
	case err != nil:
		return fmt.Errorf("look up admin: %w", err)
	}

	if u.Role == models.RoleAdmin {
		return nil
	}
	if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return fmt.Errorf("promote admin: %w", err)
	}
	logger.Info("promoted user to admin", zap.String("user_id", u.ID.Hex()))
	return nil
}
