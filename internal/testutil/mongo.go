package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTestMongoURI is used when BOIRHUB_TEST_MONGO_URI is unset.
const DefaultTestMongoURI = "mongodb://localhost:27017"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func testClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		uri := os.Getenv("BOIRHUB_TEST_MONGO_URI")
		if uri == "" {
			uri = DefaultTestMongoURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}
		client = c
	})
	return client, clientErr
}

// SetupTestDB returns a fresh database that is dropped when the test ends.
// The test is skipped when no MongoDB server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB test in short mode")
	}
	c, err := testClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	db := c.Database(fmt.Sprintf("boirhub_test_%s", primitive.NewObjectID().Hex()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// TestContext returns a context with a timeout suitable for store tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
