package reconcile_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	companystore "github.com/dalemusser/boirhub/internal/app/store/companies"
	formstore "github.com/dalemusser/boirhub/internal/app/store/companyforms"
	userstore "github.com/dalemusser/boirhub/internal/app/store/users"
	"github.com/dalemusser/boirhub/internal/app/system/blobstore"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// journal records mutating store calls in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// clone deep-copies a document the way a database round trip would.
func clone[T any](v T) T {
	b, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := bson.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

type memCompanies struct {
	mu         sync.Mutex
	j          *journal
	docs       map[primitive.ObjectID]models.Company
	failCreate error
}

func (m *memCompanies) Create(_ context.Context, c models.Company) (models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return models.Company{}, m.failCreate
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.OwnerIDs == nil {
		c.OwnerIDs = []primitive.ObjectID{}
	}
	if c.ApplicantIDs == nil {
		c.ApplicantIDs = []primitive.ObjectID{}
	}
	m.docs[c.ID] = clone(c)
	m.j.add("companies.create")
	return c, nil
}

func (m *memCompanies) GetByID(_ context.Context, id primitive.ObjectID) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	c = clone(c)
	return &c, nil
}

func (m *memCompanies) GetByFormID(_ context.Context, formID primitive.ObjectID) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.docs {
		if c.FormID == formID {
			c = clone(c)
			return &c, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memCompanies) List(_ context.Context, f companystore.ListFilter) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Company{}
	for _, c := range m.docs {
		if f.UserID != nil && c.UserID != *f.UserID {
			continue
		}
		if f.Search != "" && !strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, clone(c))
	}
	return out, nil
}

func (m *memCompanies) Save(_ context.Context, c *models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[c.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	m.docs[c.ID] = clone(*c)
	return nil
}

func (m *memCompanies) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(m.docs, id)
	m.j.add("companies.delete")
	return nil
}

func (m *memCompanies) get(t *testing.T, id primitive.ObjectID) models.Company {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok {
		t.Fatalf("company %s not stored", id.Hex())
	}
	return clone(c)
}

func (m *memCompanies) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type memForms struct {
	mu   sync.Mutex
	j    *journal
	docs map[primitive.ObjectID]models.CompanyForm
}

func taxKey(f *models.CompanyForm) string {
	if f.TaxInfo == nil || f.TaxInfo.TaxIDType == "" || f.TaxInfo.TaxIDNumber == "" {
		return ""
	}
	return f.TaxInfo.TaxIDType + "|" + f.TaxInfo.TaxIDNumber
}

func (m *memForms) dupLocked(f *models.CompanyForm) bool {
	key := taxKey(f)
	if key == "" {
		return false
	}
	for id, other := range m.docs {
		if id != f.ID && taxKey(&other) == key {
			return true
		}
	}
	return false
}

func (m *memForms) Create(_ context.Context, f models.CompanyForm) (models.CompanyForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if m.dupLocked(&f) {
		return models.CompanyForm{}, formstore.ErrDuplicateTaxID
	}
	m.docs[f.ID] = clone(f)
	m.j.add("forms.create")
	return f, nil
}

func (m *memForms) GetByID(_ context.Context, id primitive.ObjectID) (*models.CompanyForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	f = clone(f)
	return &f, nil
}

func (m *memForms) FindByTaxID(_ context.Context, idType, number string) (*models.CompanyForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.docs {
		if taxKey(&f) == idType+"|"+number {
			f = clone(f)
			return &f, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memForms) Save(_ context.Context, f *models.CompanyForm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[f.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	if m.dupLocked(f) {
		return formstore.ErrDuplicateTaxID
	}
	m.docs[f.ID] = clone(*f)
	return nil
}

func (m *memForms) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(m.docs, id)
	m.j.add("forms.delete")
	return nil
}

func (m *memForms) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *memForms) get(t *testing.T, id primitive.ObjectID) models.CompanyForm {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.docs[id]
	if !ok {
		t.Fatalf("form %s not stored", id.Hex())
	}
	return clone(f)
}

type memParticipants struct {
	mu   sync.Mutex
	j    *journal
	name string
	docs map[primitive.ObjectID]models.Participant
}

func (m *memParticipants) Create(_ context.Context, p models.Participant) (models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.docs[p.ID] = clone(p)
	m.j.add(m.name + ".create")
	return p, nil
}

func (m *memParticipants) GetByID(_ context.Context, id primitive.ObjectID) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	p = clone(p)
	return &p, nil
}

func (m *memParticipants) GetMany(_ context.Context, ids []primitive.ObjectID) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Participant{}
	for _, id := range ids {
		if p, ok := m.docs[id]; ok {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (m *memParticipants) Save(_ context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[p.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	m.docs[p.ID] = clone(*p)
	return nil
}

func (m *memParticipants) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(m.docs, id)
	m.j.add(m.name + ".delete")
	return nil
}

func (m *memParticipants) get(t *testing.T, id primitive.ObjectID) *models.Participant {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.docs[id]
	if !ok {
		t.Fatalf("%s %s not stored", m.name, id.Hex())
	}
	c := clone(p)
	return &c
}

func (m *memParticipants) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type memUsers struct {
	mu   sync.Mutex
	j    *journal
	docs map[primitive.ObjectID]models.User
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	u = clone(u)
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.docs {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			u = clone(u)
			return &u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memUsers) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range m.docs {
		if other.Email == u.Email {
			return models.User{}, userstore.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CompanyIDs == nil {
		u.CompanyIDs = []primitive.ObjectID{}
	}
	m.docs[u.ID] = clone(u)
	m.j.add("users.create")
	return u, nil
}

func (m *memUsers) AttachCompany(_ context.Context, userID, companyID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.docs[userID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.CompanyIDs = append(models.RemoveID(u.CompanyIDs, companyID), companyID)
	m.docs[userID] = u
	m.j.add("users.attach")
	return nil
}

func (m *memUsers) DetachCompany(_ context.Context, userID, companyID primitive.ObjectID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.docs[userID]
	if !ok {
		return 0, mongo.ErrNoDocuments
	}
	u.CompanyIDs = models.RemoveID(u.CompanyIDs, companyID)
	m.docs[userID] = u
	m.j.add("users.detach")
	return len(u.CompanyIDs), nil
}

func (m *memUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(m.docs, id)
	m.j.add("users.delete")
	return nil
}

func (m *memUsers) has(id primitive.ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

// memBlobs journals uploads and deletes over an in-memory blob store.
type memBlobs struct {
	*blobstore.Blobs
	mem *storage.Memory
	j   *journal
}

func newMemBlobs(j *journal) *memBlobs {
	mem := storage.NewMemory(storage.MemoryConfig{})
	return &memBlobs{Blobs: blobstore.Wrap(mem), mem: mem, j: j}
}

func (m *memBlobs) Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	key, err := m.Blobs.Upload(ctx, name, r, contentType)
	if err == nil {
		m.j.add("blobs.upload")
	}
	return key, err
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	m.j.add("blobs.delete")
	return m.Blobs.Delete(ctx, key)
}

func (m *memBlobs) has(key string) bool {
	ok, err := m.mem.Exists(context.Background(), key)
	return err == nil && ok
}

type sentMail struct {
	Template string
	To       string
	Data     map[string]string
}

type memMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *memMailer) Send(_ context.Context, template, to string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Template: template, To: to, Data: data})
	return nil
}

type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAudit) Log(_ context.Context, e audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memAudit) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

type memMetrics struct {
	mu        sync.Mutex
	rows      map[string]int
	submitted int
}

func (m *memMetrics) ImportRow(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[outcome]++
}

func (m *memMetrics) Submitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted++
}

// harness wires a Service to in-memory stores.
type harness struct {
	svc        *reconcile.Service
	j          *journal
	companies  *memCompanies
	forms      *memForms
	owners     *memParticipants
	applicants *memParticipants
	users      *memUsers
	blobs      *memBlobs
	mail       *memMailer
	audit      *memAudit
	metrics    *memMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	j := &journal{}
	h := &harness{
		j:          j,
		companies:  &memCompanies{j: j, docs: map[primitive.ObjectID]models.Company{}},
		forms:      &memForms{j: j, docs: map[primitive.ObjectID]models.CompanyForm{}},
		owners:     &memParticipants{j: j, name: "owners", docs: map[primitive.ObjectID]models.Participant{}},
		applicants: &memParticipants{j: j, name: "applicants", docs: map[primitive.ObjectID]models.Participant{}},
		users:      &memUsers{j: j, docs: map[primitive.ObjectID]models.User{}},
		blobs:      newMemBlobs(j),
		mail:       &memMailer{},
		audit:      &memAudit{},
		metrics:    &memMetrics{rows: map[string]int{}},
	}
	h.svc = reconcile.New(reconcile.Deps{
		Companies:  h.companies,
		Forms:      h.forms,
		Owners:     h.owners,
		Applicants: h.applicants,
		Users:      h.users,
		Blobs:      h.blobs,
		Mail:       h.mail,
		Audit:      h.audit,
		Metrics:    h.metrics,
	})
	return h
}

// addUser stores a user and returns an Actor for them.
func (h *harness) addUser(t *testing.T, email, role string) reconcile.Actor {
	t.Helper()
	u, err := h.users.Create(context.Background(), models.User{Email: email, FirstName: "Pat", LastName: "Lee", Role: role})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return reconcile.Actor{UserID: u.ID, Role: role}
}
