package companystore_test

import (
	"errors"
	"testing"

	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/boirhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := companystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	form := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Company{Name: "  Acme Corp ", FormID: form, UserID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Name != "Acme Corp" {
		t.Errorf("expected trimmed name, got %q", created.Name)
	}
	if created.NameCI != "acme corp" {
		t.Errorf("expected folded name, got %q", created.NameCI)
	}
	if created.OwnerIDs == nil || created.ApplicantIDs == nil {
		t.Error("expected empty participant id slices")
	}

	got, err := store.GetByFormID(ctx, form)
	if err != nil {
		t.Fatalf("GetByFormID failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected %s, got %s", created.ID.Hex(), got.ID.Hex())
	}
}

func TestStore_ListFiltersAndSorts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := companystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	for _, c := range []models.Company{
		{Name: "Zeta", UserID: alice},
		{Name: "alpha", UserID: alice},
		{Name: "Alpine (Holdings)", UserID: bob},
	} {
		if _, err := store.Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	all, err := store.List(ctx, companystore.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "alpha" || all[2].Name != "Zeta" {
		t.Errorf("unexpected order: %v", names(all))
	}

	own, _ := store.List(ctx, companystore.ListFilter{UserID: &alice})
	if len(own) != 2 {
		t.Errorf("expected 2 companies for alice, got %d", len(own))
	}

	search, _ := store.List(ctx, companystore.ListFilter{Search: "ALP"})
	if len(search) != 2 {
		t.Errorf("expected 2 prefix matches, got %v", names(search))
	}

	paged, _ := store.List(ctx, companystore.ListFilter{Limit: 1, Offset: 1})
	if len(paged) != 1 || paged[0].Name != "Alpine (Holdings)" {
		t.Errorf("unexpected page: %v", names(paged))
	}
}

func TestStore_SaveDeleteMarkPaid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := companystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := store.Create(ctx, models.Company{Name: "Acme"})
	c.AnswersCount = 5
	if err := store.Save(ctx, &c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tx := primitive.NewObjectID()
	if err := store.MarkPaid(ctx, []primitive.ObjectID{c.ID}, tx); err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	got, _ := store.GetByID(ctx, c.ID)
	if got.AnswersCount != 5 || !got.IsPaid || len(got.TransactionIDs) != 1 {
		t.Errorf("unexpected company after save/mark paid: %+v", got)
	}

	if err := store.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Save(ctx, &c); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments saving a deleted company, got %v", err)
	}
}

func names(cs []models.Company) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
