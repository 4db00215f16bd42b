package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companyRow(line int, taxNumber string) csvimport.Row {
	return csvimport.Row{Line: line, Values: map[string][]string{
		"BOIR Submission Deadline":     {"2025-01-01"},
		"Company Legal Name":           {"Acme"},
		"Company Tax Id Type":          {"EIN"},
		"Company Tax Id Number":        {taxNumber},
		"Company Country of Formation": {"US"},
		"Company State of Formation":   {"DE"},
	}}
}

func withOwners(row csvimport.Row, owners ...[2]string) csvimport.Row {
	for _, o := range owners {
		row.Values["Owner Last Name"] = append(row.Values["Owner Last Name"], o[0])
		row.Values["Owner First Name"] = append(row.Values["Owner First Name"], "Ann")
		row.Values["Owner Document Type"] = append(row.Values["Owner Document Type"], "U.S. passport")
		row.Values["Owner Document Number"] = append(row.Values["Owner Document Number"], o[1])
	}
	return row
}

func onlyCompany(t *testing.T, h *harness) models.Company {
	t.Helper()
	list, err := h.companies.List(context.Background(), companystore.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestImportRows_CreateThenMerge(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)
	ctx := context.Background()

	rep := h.svc.ImportRows(ctx, actor, []csvimport.Row{
		withOwners(companyRow(2, "12-3456789"), [2]string{"Smith", "X100"}),
	})
	require.Equal(t, 1, rep.Created, rep.ResultMessages)
	assert.Equal(t, []string{"Row 2: created company Acme"}, rep.ResultMessages)
	c := onlyCompany(t, h)
	require.Len(t, c.OwnerIDs, 1)
	assert.Len(t, c.ApplicantIDs, 0)
	assert.Equal(t, actor.UserID, c.UserID)
	require.Len(t, rep.MissingFields, 1)
	assert.True(t, strings.HasPrefix(rep.MissingFields[0], "Row 2: "))
	assert.Contains(t, rep.MissingFields[0], "Company City")

	row := withOwners(companyRow(3, "123456789"), [2]string{"Smith", "x-100"})
	row.Values["Owner First Name"] = []string{"Anne"}
	row.Values["Company City"] = []string{"Dover"}
	rep = h.svc.ImportRows(ctx, actor, []csvimport.Row{row})
	require.Equal(t, 1, rep.Changed, rep.ResultMessages)
	assert.Equal(t, 0, rep.Created)

	c = onlyCompany(t, h)
	require.Len(t, c.OwnerIDs, 1, "same document identifies the same owner")
	o := h.owners.get(t, c.OwnerIDs[0])
	assert.Equal(t, "Anne", o.PersonalInfo.FirstName)
	form := h.forms.get(t, c.FormID)
	assert.Equal(t, "Dover", form.Address.City)
	assert.Equal(t, 1, h.metrics.rows[reconcile.OutcomeCreated])
	assert.Equal(t, 1, h.metrics.rows[reconcile.OutcomeChanged])
}

func TestImportRows_FinCENIDIdentity(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)
	ctx := context.Background()

	row := companyRow(2, "123456789")
	row.Values["Owner FinCEN ID"] = []string{"123456789012"}
	rep := h.svc.ImportRows(ctx, actor, []csvimport.Row{row})
	require.Equal(t, 1, rep.Created, rep.ResultMessages)

	again := companyRow(3, "123456789")
	again.Values["Owner FinCEN ID"] = []string{"123456789012", "999999999999"}
	rep = h.svc.ImportRows(ctx, actor, []csvimport.Row{again})
	require.Equal(t, 1, rep.Changed, rep.ResultMessages)

	c := onlyCompany(t, h)
	require.Len(t, c.OwnerIDs, 2)
	ids := []string{
		h.owners.get(t, c.OwnerIDs[0]).FinCENIDValue(),
		h.owners.get(t, c.OwnerIDs[1]).FinCENIDValue(),
	}
	assert.Equal(t, []string{"123456789012", "999999999999"}, ids)
}

func TestImportRows_ForeignPooledCollapsesOwners(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)
	ctx := context.Background()

	rep := h.svc.ImportRows(ctx, actor, []csvimport.Row{
		withOwners(companyRow(2, "123456789"), [2]string{"Smith", "A1"}, [2]string{"Jones", "B2"}),
	})
	require.Equal(t, 1, rep.Created, rep.ResultMessages)
	require.Len(t, onlyCompany(t, h).OwnerIDs, 2)

	row := withOwners(companyRow(3, "123456789"), [2]string{"Brown", "C3"})
	row.Values["Foreign Pooled Investment Vehicle"] = []string{"yes"}
	rep = h.svc.ImportRows(ctx, actor, []csvimport.Row{row})
	require.Equal(t, 1, rep.Changed, rep.ResultMessages)

	c := onlyCompany(t, h)
	assert.True(t, c.IsForeignPooled)
	require.Len(t, c.OwnerIDs, 1)
	assert.Equal(t, "Brown", h.owners.get(t, c.OwnerIDs[0]).LastName())
	assert.Equal(t, 1, h.owners.count(), "detached owners are deleted")

	var found bool
	for _, r := range rep.Reasons {
		if strings.Contains(r, "single owner") {
			found = true
		}
	}
	assert.True(t, found, rep.Reasons)
}

func TestImportRows_NewCompanyNeedsDeadline(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)

	row := companyRow(2, "123456789")
	delete(row.Values, "BOIR Submission Deadline")
	rep := h.svc.ImportRows(context.Background(), actor, []csvimport.Row{row})

	assert.Equal(t, 1, rep.Rejected)
	assert.Equal(t, []string{"Row 2: BOIR Submission Deadline: required for a new company"}, rep.Errors)
	assert.Equal(t, 0, h.companies.count())
}

func TestImportRows_RowsAreIndependent(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)

	bad := companyRow(3, "")
	rep := h.svc.ImportRows(context.Background(), actor, []csvimport.Row{
		companyRow(2, "111111111"),
		bad,
		companyRow(4, "222222222"),
	})

	assert.Equal(t, 2, rep.Created)
	assert.Equal(t, 1, rep.Rejected)
	require.Len(t, rep.Rows, 3)
	assert.Equal(t, reconcile.OutcomeRejected, rep.Rows[1].Outcome)
	assert.Equal(t, 2, h.companies.count())
}

func TestImportRows_OtherAccountsTaxIDRejected(t *testing.T) {
	h := newHarness(t)
	owner := h.addUser(t, "owner@example.com", models.RoleUser)
	other := h.addUser(t, "other@example.com", models.RoleUser)
	ctx := context.Background()

	rep := h.svc.ImportRows(ctx, owner, []csvimport.Row{companyRow(2, "123456789")})
	require.Equal(t, 1, rep.Created)

	rep = h.svc.ImportRows(ctx, other, []csvimport.Row{companyRow(2, "123456789")})
	assert.Equal(t, 1, rep.Rejected)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "another account")
}

func TestImportRows_AdminCreatesUserByEmail(t *testing.T) {
	h := newHarness(t)
	admin := h.addUser(t, "admin@example.com", models.RoleAdmin)

	row := companyRow(2, "123456789")
	row.Values["User Email"] = []string{"New.Client@Example.com"}
	rep := h.svc.ImportRows(context.Background(), admin, []csvimport.Row{row})
	require.Equal(t, 1, rep.Created, rep.ResultMessages)

	u, err := h.users.GetByEmail(context.Background(), "new.client@example.com")
	require.NoError(t, err)
	c := onlyCompany(t, h)
	assert.Equal(t, u.ID, c.UserID)
}

func TestImportRows_FailedCompanyCreateLeavesNoForm(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)
	ctx := context.Background()

	h.companies.failCreate = errors.New("companies unavailable")
	rep := h.svc.ImportRows(ctx, actor, []csvimport.Row{companyRow(2, "123456789")})
	assert.Equal(t, 1, rep.Rejected)
	assert.Equal(t, 0, h.forms.count(), "form is removed with its company")

	h.companies.failCreate = nil
	rep = h.svc.ImportRows(ctx, actor, []csvimport.Row{companyRow(2, "123456789")})
	assert.Equal(t, 1, rep.Created, rep.Errors)
}

func TestImportRows_ExistingCompanyIgnoresApplicantColumns(t *testing.T) {
	h := newHarness(t)
	actor := h.addUser(t, "owner@example.com", models.RoleUser)
	ctx := context.Background()

	row := companyRow(2, "123456789")
	row.Values["Existing Company"] = []string{"true"}
	rep := h.svc.ImportRows(ctx, actor, []csvimport.Row{row})
	require.Equal(t, 1, rep.Created, rep.ResultMessages)

	row = companyRow(3, "123456789")
	row.Values["Applicant Last Name"] = []string{"Brown"}
	row.Values["Applicant First Name"] = []string{"Bo"}
	rep = h.svc.ImportRows(ctx, actor, []csvimport.Row{row})
	require.Equal(t, 1, rep.Changed, rep.ResultMessages)

	assert.Len(t, onlyCompany(t, h).ApplicantIDs, 0)
	var found bool
	for _, r := range rep.Reasons {
		if strings.Contains(r, "Applicant columns ignored") {
			found = true
		}
	}
	assert.True(t, found, rep.Reasons)
}
