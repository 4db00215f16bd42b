package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/indexes"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/boirhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create_NormalizesAndDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Email:     "  Pat.Lee@Example.COM ",
		FirstName: " Pat ",
		LastName:  "Lee",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "pat.lee@example.com" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.Role != models.RoleUser {
		t.Errorf("expected default role %q, got %q", models.RoleUser, created.Role)
	}
	if created.FullNameCI != "pat lee" {
		t.Errorf("expected FullNameCI %q, got %q", "pat lee", created.FullNameCI)
	}
	if created.CompanyIDs == nil {
		t.Error("expected CompanyIDs to be an empty slice")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := store.GetByEmail(ctx, "PAT.LEE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected %s, got %s", created.ID.Hex(), got.ID.Hex())
	}
}

func TestStore_Create_RejectsBadInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Email: ""}); err == nil {
		t.Error("expected error for empty email")
	}
	if _, err := store.Create(ctx, models.User{Email: "a@b.co", Role: "coordinator"}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{Email: "DUP@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_AttachDetachCompany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	c1, c2 := primitive.NewObjectID(), primitive.NewObjectID()

	for _, id := range []primitive.ObjectID{c1, c2, c1} {
		if err := store.AttachCompany(ctx, u.ID, id); err != nil {
			t.Fatalf("AttachCompany failed: %v", err)
		}
	}
	got, _ := store.GetByID(ctx, u.ID)
	if len(got.CompanyIDs) != 2 {
		t.Fatalf("expected 2 companies (no duplicates), got %d", len(got.CompanyIDs))
	}

	remaining, err := store.DetachCompany(ctx, u.ID, c1)
	if err != nil {
		t.Fatalf("DetachCompany failed: %v", err)
	}
	if remaining != 1 {
		t.Errorf("expected 1 remaining, got %d", remaining)
	}
	remaining, err = store.DetachCompany(ctx, u.ID, c2)
	if err != nil {
		t.Fatalf("DetachCompany failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}

	if _, err := store.DetachCompany(ctx, primitive.NewObjectID(), c1); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments for missing user, got %v", err)
	}
	if err := store.AttachCompany(ctx, primitive.NewObjectID(), c1); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments for missing user, got %v", err)
	}
}

func TestStore_OTPLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{Email: "otp@example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.SetOTP(ctx, u.ID, "hash", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("SetOTP failed: %v", err)
	}
	n, err := store.IncrementOTPAttempts(ctx, u.ID)
	if err != nil {
		t.Fatalf("IncrementOTPAttempts failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if got.OTP == nil || got.OTP.Hash != "hash" {
		t.Fatalf("expected stored OTP, got %+v", got.OTP)
	}

	if err := store.ClearOTP(ctx, u.ID); err != nil {
		t.Fatalf("ClearOTP failed: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.OTP != nil {
		t.Error("expected OTP to be cleared")
	}
}

func TestStore_ClearExpiredOTPs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expired, _ := store.Create(ctx, models.User{Email: "old@example.com"})
	fresh, _ := store.Create(ctx, models.User{Email: "new@example.com"})
	now := time.Now()
	_ = store.SetOTP(ctx, expired.ID, "a", now.Add(-time.Minute))
	_ = store.SetOTP(ctx, fresh.ID, "b", now.Add(time.Minute))

	n, err := store.ClearExpiredOTPs(ctx, now)
	if err != nil {
		t.Fatalf("ClearExpiredOTPs failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 cleared, got %d", n)
	}
	got, _ := store.GetByID(ctx, fresh.ID)
	if got.OTP == nil {
		t.Error("unexpired code should remain")
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, _ := store.Create(ctx, models.User{Email: "gone@example.com"})
	if err := store.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, u.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
	if err := store.Delete(ctx, u.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments on second delete, got %v", err)
	}
}
