package bootstrap

import (
	"github.com/dalemusser/boirhub/internal/app/system/blobstore"
	"github.com/dalemusser/boirhub/internal/app/system/metrics"
	"github.com/dalemusser/boirhub/internal/app/system/ratelimit"
	"github.com/dalemusser/boirhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Blobs         *blobstore.Blobs

	// Runtime is filled in by Startup and torn down by Shutdown. WAFFLE
	// passes DBDeps by value, so it is shared through a pointer.
	Runtime *Runtime
}

// Runtime holds long-lived components that run alongside the server.
type Runtime struct {
	Metrics    *metrics.Metrics
	Limiter    *ratelimit.CodeLimiter
	OTPCleanup *workers.OTPCleanup
}
