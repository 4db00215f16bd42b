package bootstrap

import (
	"context"

	metricsstore "github.com/dalemusser/boirhub/internal/app/store/metrics"
	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/metrics"
	"github.com/dalemusser/boirhub/internal/app/system/ratelimit"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// timeout overrides, registers metrics, and starts background work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
		Batch:  appCfg.TimeoutBatch,
	})

	rt := deps.Runtime
	rt.Metrics = metrics.New()
	db := deps.MongoDatabase
	if err := rt.Metrics.WatchCounts(func(ctx context.Context) metricsstore.Counts {
		return metricsstore.FetchCounts(ctx, db)
	}, timeouts.Short()); err != nil {
		logger.Error("register count metrics failed", zap.Error(err))
		return err
	}

	rt.Limiter = ratelimit.NewCodeLimiter()

	rt.OTPCleanup = workers.NewOTPCleanup(userstore.New(db), logger, appCfg.OTPCleanupInterval)
	rt.OTPCleanup.Start()
	return nil
}
