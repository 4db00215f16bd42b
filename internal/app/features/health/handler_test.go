package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/boirhub/internal/app/features/health"
	"github.com/dalemusser/boirhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
	Filing   string `json:"filing"`
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), "local", true, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var response healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "ok" || response.Database != "connected" {
		t.Errorf("got %+v, want ok/connected", response)
	}
	if response.Storage != "local" || response.Filing != "enabled" {
		t.Errorf("got %+v, want local storage with filing enabled", response)
	}
}

func TestServe_DatabaseUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Nothing listens on port 1; Connect does not dial, Ping fails fast.
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("mongo.Connect failed: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	handler := health.NewHandler(client, "", false, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	var response healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Database != "disconnected" || response.Filing != "disabled" {
		t.Errorf("unexpected body %+v", response)
	}
}
