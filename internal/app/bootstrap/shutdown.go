package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work and cleanly tears down DB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.OTPCleanup != nil {
			rt.OTPCleanup.Stop()
		}
		if rt.Limiter != nil {
			rt.Limiter.Stop()
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
