package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"github.com/dalemusser/boirhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log_AutoGeneratesIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	companyID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryCompany,
		EventType: audit.EventCompanyCreated,
		CompanyID: &companyID,
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByCompany(ctx, companyID, 10)
	if err != nil {
		t.Fatalf("GetByCompany failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	other := primitive.NewObjectID()
	base := time.Now().Add(-time.Hour)

	events := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, ActorID: &actor, Success: true, Timestamp: base},
		{Category: audit.CategoryAuth, EventType: audit.EventCodeFailed, ActorID: &actor, Timestamp: base.Add(time.Minute)},
		{Category: audit.CategoryCompany, EventType: audit.EventCompanyDeleted, ActorID: &other, Success: true, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{ActorID: &actor})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for actor, got %d", len(got))
	}
	if got[0].EventType != audit.EventCodeFailed {
		t.Errorf("expected newest first, got %q", got[0].EventType)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryCompany})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 company event, got %d", n)
	}

	failed, err := store.GetFailedCodes(ctx, base, 10)
	if err != nil {
		t.Fatalf("GetFailedCodes failed: %v", err)
	}
	if len(failed) != 1 {
		t.Errorf("expected 1 failed code event, got %d", len(failed))
	}
}

func TestStore_Query_Pagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := store.Log(ctx, audit.Event{
			Category:  audit.CategoryFiling,
			EventType: audit.EventCompanySubmitted,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	page, err := store.Query(ctx, audit.QueryFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 events, got %d", len(page))
	}
	if !page[0].Timestamp.After(page[1].Timestamp) {
		t.Error("expected descending timestamps")
	}
}
