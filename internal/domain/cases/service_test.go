package cases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orvio/clinic-portal/internal/domain/admin"
	"github.com/orvio/clinic-portal/internal/domain/audit"
	"github.com/orvio/clinic-portal/internal/domain/patient"
	"github.com/orvio/clinic-portal/internal/platform/auth"
	"github.com/orvio/clinic-portal/internal/platform/esign"
	"github.com/orvio/clinic-portal/internal/platform/storage"
)

// -- Mocks --

type mockCaseRepo struct {
	mu    sync.Mutex
	cases map[uuid.UUID]*Case
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[uuid.UUID]*Case)}
}

func (m *mockCaseRepo) Create(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.cases[c.ID] = c
	return nil
}

func (m *mockCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) MarkSigned(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return fmt.Errorf("no rows")
	}
	c.Status = StatusSigned
	c.ConsentInfoShare = true
	c.ConsentInsurerContact = true
	c.OfferedUsualPharmacy = true
	c.ConsentPharmacyExec = true
	c.UpdatedAt = time.Now()
	return nil
}

func (m *mockCaseRepo) SetStatus(_ context.Context, id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return fmt.Errorf("no rows")
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (m *mockCaseRepo) ListByClinicOrg(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Case
	for _, c := range m.cases {
		if c.ClinicOrgID == orgID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockCaseRepo) ListByPharmacyOrg(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Case
	for _, c := range m.cases {
		if c.PharmacyOrgID == orgID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockCaseRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Case
	for _, c := range m.cases {
		if c.PatientID == patientID {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*Document
}

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{docs: make(map[uuid.UUID]*Document)}
}

func (m *mockDocRepo) Create(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	m.docs[d.ID] = d
	return nil
}

func (m *mockDocRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	return d, nil
}

func (m *mockDocRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Document
	for _, d := range m.docs {
		if d.CaseID == caseID {
			result = append(result, d)
		}
	}
	return result, nil
}

type mockEnvelopeRepo struct {
	mu        sync.Mutex
	envelopes map[uuid.UUID]*Envelope // keyed by case id
}

func newMockEnvelopeRepo() *mockEnvelopeRepo {
	return &mockEnvelopeRepo{envelopes: make(map[uuid.UUID]*Envelope)}
}

func (m *mockEnvelopeRepo) Upsert(_ context.Context, e *Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.envelopes[e.CaseID]; ok {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = time.Now()
	cp := *e
	m.envelopes[e.CaseID] = &cp
	return nil
}

func (m *mockEnvelopeRepo) GetByCase(_ context.Context, caseID uuid.UUID) (*Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.envelopes[caseID]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	return e, nil
}

type mockOrgDir struct {
	orgs []*admin.Organization
}

func (m *mockOrgDir) FirstByType(_ context.Context, kind auth.OrgKind) (*admin.Organization, error) {
	for _, o := range m.orgs {
		if o.Type == kind {
			return o, nil
		}
	}
	return nil, fmt.Errorf("no rows")
}

type mockPatientDir struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatientDir) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	return p, nil
}

type memDriver struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemDriver() *memDriver {
	return &memDriver{blobs: make(map[string][]byte)}
}

func (m *memDriver) Put(_ context.Context, key string, data []byte) (storage.Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	sum := sha256.Sum256(data)
	return storage.Stored{Key: key, SHA256: hex.EncodeToString(sum[:])}, nil
}

func (m *memDriver) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

type fakeProvider struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	fail     bool
}

func (p *fakeProvider) Name() string { return "mock" }

func (p *fakeProvider) CreateAndCompleteEnvelope(_ context.Context, caseID uuid.UUID, language string) (esign.Envelope, []esign.CompletedDoc, error) {
	cur := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		max := p.maxSeen.Load()
		if cur <= max || p.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.fail {
		return esign.Envelope{}, nil, fmt.Errorf("template missing")
	}
	n := p.calls.Add(1)
	return esign.Envelope{
			Provider:           "mock",
			ProviderEnvelopeID: fmt.Sprintf("mock_%s_%d", caseID, n),
		}, []esign.CompletedDoc{
			{Type: esign.DocTypeEnrollment, Bytes: []byte("enrollment " + language), TemplateVersion: "PP-EYL-CA-0371-1"},
			{Type: esign.DocTypePharmacyConsent, Bytes: []byte("consent " + language), TemplateVersion: "KB-Consent-v1"},
			{Type: esign.DocTypePrescription, Bytes: []byte("rx " + language), TemplateVersion: "Rx-v1"},
		}, nil
}

type mockAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (m *mockAudit) Record(_ context.Context, ev *audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockAudit) byAction(action string) []*audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*audit.Event
	for _, ev := range m.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// -- Fixture --

type fixture struct {
	svc       *Service
	cases     *mockCaseRepo
	docs      *mockDocRepo
	envelopes *mockEnvelopeRepo
	patients  *mockPatientDir
	store     *memDriver
	provider  *fakeProvider
	audit     *mockAudit

	clinicOrg   uuid.UUID
	pharmacyOrg uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cases:       newMockCaseRepo(),
		docs:        newMockDocRepo(),
		envelopes:   newMockEnvelopeRepo(),
		store:       newMemDriver(),
		provider:    &fakeProvider{},
		audit:       &mockAudit{},
		clinicOrg:   uuid.New(),
		pharmacyOrg: uuid.New(),
	}
	dir := &mockOrgDir{orgs: []*admin.Organization{
		{ID: f.clinicOrg, Type: auth.OrgClinic, Name: "Orvio Clinic"},
		{ID: f.pharmacyOrg, Type: auth.OrgPharmacy, Name: "Pharmacie Kévin Boivin inc."},
	}}
	f.patients = &mockPatientDir{patients: map[uuid.UUID]*patient.Patient{}}
	f.svc = NewService(f.cases, f.docs, f.envelopes, dir, f.patients, f.store, f.provider, f.audit, zerolog.Nop())
	return f
}

func (f *fixture) newCase(t *testing.T) *Case {
	t.Helper()
	c := &Case{
		PatientID:     uuid.New(),
		ClinicOrgID:   f.clinicOrg,
		PharmacyOrgID: f.pharmacyOrg,
		Status:        StatusDraft,
		Language:      "FR",
		Diagnosis:     "DMLA",
		Medication:    "EYLEA_PFS_2MG",
		Eye:           "OD",
	}
	if err := f.cases.Create(context.Background(), c); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return c
}

func clinicSession(orgID uuid.UUID) *auth.Session {
	return &auth.Session{UserID: uuid.New(), OrgID: orgID, Role: auth.ClinicStaff, Email: "c@example.com"}
}

func pharmacySession(orgID uuid.UUID) *auth.Session {
	return &auth.Session{UserID: uuid.New(), OrgID: orgID, Role: auth.PharmacyStaff, Email: "p@example.com"}
}

// -- Scoping --

func TestCaseForSession_Scoping(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	otherOrg := uuid.New()

	tests := []struct {
		name string
		sess *auth.Session
		want error
	}{
		{"clinic role matching clinic org", clinicSession(f.clinicOrg), nil},
		{"pharmacy role matching pharmacy org", pharmacySession(f.pharmacyOrg), nil},
		{"clinic role with foreign org", clinicSession(otherOrg), ErrForbidden},
		{"pharmacy role with foreign org", pharmacySession(otherOrg), ErrForbidden},
		// Role decides which org field is checked, never an OR of both.
		{"clinic role matching only the pharmacy field", clinicSession(f.pharmacyOrg), ErrForbidden},
		{"pharmacy role matching only the clinic field", pharmacySession(f.clinicOrg), ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.caseForSession(context.Background(), tt.sess, c.ID)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCaseForSession_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.caseForSession(context.Background(), clinicSession(f.clinicOrg), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// -- Signing --

func TestStartSigning(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	sess := clinicSession(f.clinicOrg)

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatalf("start signing failed: %v", err)
	}

	got, _ := f.cases.GetByID(context.Background(), c.ID)
	if got.Status != StatusSigned {
		t.Errorf("expected SIGNED, got %s", got.Status)
	}
	if !got.ConsentInfoShare || !got.ConsentInsurerContact || !got.OfferedUsualPharmacy || !got.ConsentPharmacyExec {
		t.Errorf("expected all consent flags true after signing: %+v", got)
	}

	docs, _ := f.docs.ListByCase(context.Background(), c.ID)
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	for _, d := range docs {
		if !strings.HasPrefix(d.StorageKey, "cases/"+c.ID.String()+"/") {
			t.Errorf("storage key not namespaced by case: %s", d.StorageKey)
		}
		wantExt := d.Type.FileExt()
		if !strings.HasSuffix(d.StorageKey, "."+wantExt) {
			t.Errorf("expected %s key to end in .%s: %s", d.Type, wantExt, d.StorageKey)
		}
		if !strings.Contains(d.StorageKey, strings.ToLower(string(d.Type))) {
			t.Errorf("expected doc type in key: %s", d.StorageKey)
		}
		data, err := f.store.Get(context.Background(), d.StorageKey)
		if err != nil {
			t.Fatalf("stored bytes missing for %s: %v", d.StorageKey, err)
		}
		sum := sha256.Sum256(data)
		if d.SHA256 != hex.EncodeToString(sum[:]) {
			t.Errorf("document hash does not match stored bytes for %s", d.Type)
		}
		if d.TemplateVersion == nil || *d.TemplateVersion == "" {
			t.Errorf("expected template version on %s", d.Type)
		}
	}

	env, err := f.envelopes.GetByCase(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("expected envelope: %v", err)
	}
	if env.Status != "completed" || env.Provider != "mock" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	signed := f.audit.byAction(audit.ActionCaseSigned)
	if len(signed) != 1 {
		t.Fatalf("expected 1 CASE_SIGNED event, got %d", len(signed))
	}
	if signed[0].Meta["envelopeId"] != env.ID.String() {
		t.Errorf("audit meta missing envelope id: %+v", signed[0].Meta)
	}
	if signed[0].Meta["providerEnvelopeId"] != env.ProviderEnvelopeID {
		t.Errorf("audit meta missing provider envelope id: %+v", signed[0].Meta)
	}
}

func TestStartSigning_Twice(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	sess := pharmacySession(f.pharmacyOrg)

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatal(err)
	}
	first, _ := f.envelopes.GetByCase(context.Background(), c.ID)
	firstID := first.ID
	firstProviderEnv := first.ProviderEnvelopeID

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatal(err)
	}

	// One envelope row, updated in place.
	if len(f.envelopes.envelopes) != 1 {
		t.Errorf("expected 1 envelope row, got %d", len(f.envelopes.envelopes))
	}
	second, _ := f.envelopes.GetByCase(context.Background(), c.ID)
	if second.ID != firstID {
		t.Errorf("envelope row id changed across re-sign: %s -> %s", firstID, second.ID)
	}
	if second.ProviderEnvelopeID == firstProviderEnv {
		t.Errorf("expected provider envelope id to be replaced on re-sign")
	}

	// Documents accumulate: 2 x 3, never deduplicated.
	docs, _ := f.docs.ListByCase(context.Background(), c.ID)
	if len(docs) != 6 {
		t.Errorf("expected 6 documents after two signings, got %d", len(docs))
	}

	got, _ := f.cases.GetByID(context.Background(), c.ID)
	if got.Status != StatusSigned {
		t.Errorf("expected SIGNED after re-sign, got %s", got.Status)
	}
}

func TestStartSigning_Forbidden(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)

	err := f.svc.StartSigning(context.Background(), clinicSession(uuid.New()), c.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if docs, _ := f.docs.ListByCase(context.Background(), c.ID); len(docs) != 0 {
		t.Errorf("forbidden signing must not create documents")
	}
}

func TestStartSigning_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.fail = true
	c := f.newCase(t)

	err := f.svc.StartSigning(context.Background(), clinicSession(f.clinicOrg), c.ID)
	if err == nil {
		t.Fatal("expected provider error to propagate")
	}

	got, _ := f.cases.GetByID(context.Background(), c.ID)
	if got.Status != StatusDraft {
		t.Errorf("case status must not change when the provider fails, got %s", got.Status)
	}
	if len(f.audit.byAction(audit.ActionCaseSigned)) != 0 {
		t.Error("no CASE_SIGNED event should be recorded on failure")
	}
}

func TestStartSigning_SerializedPerCase(t *testing.T) {
	f := newFixture(t)
	f.provider.delay = 20 * time.Millisecond
	c := f.newCase(t)
	sess := clinicSession(f.clinicOrg)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
				t.Errorf("concurrent signing failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if max := f.provider.maxSeen.Load(); max > 1 {
		t.Errorf("expected provider calls serialized per case, saw %d in flight", max)
	}
	if len(f.envelopes.envelopes) != 1 {
		t.Errorf("expected 1 envelope row, got %d", len(f.envelopes.envelopes))
	}
	docs, _ := f.docs.ListByCase(context.Background(), c.ID)
	if len(docs) != 12 {
		t.Errorf("expected 4x3 documents, got %d", len(docs))
	}
}

// -- Faxing --

func TestMarkFaxed(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	sess := clinicSession(f.clinicOrg)

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.MarkFaxed(context.Background(), sess, c.ID); err != nil {
		t.Fatalf("mark faxed failed: %v", err)
	}

	got, _ := f.cases.GetByID(context.Background(), c.ID)
	if got.Status != StatusFaxed {
		t.Errorf("expected FAXED, got %s", got.Status)
	}

	faxed := f.audit.byAction(audit.ActionCaseFaxed)
	if len(faxed) != 1 {
		t.Fatalf("expected 1 CASE_FAXED event, got %d", len(faxed))
	}
	if note, _ := faxed[0].Meta["note"].(string); !strings.Contains(note, "Manual fax") {
		t.Errorf("unexpected fax note: %v", faxed[0].Meta)
	}
}

// Faxing a never-signed case succeeds; there is no status precondition.
func TestMarkFaxed_DraftCase(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)

	if err := f.svc.MarkFaxed(context.Background(), pharmacySession(f.pharmacyOrg), c.ID); err != nil {
		t.Fatalf("faxing a draft case should succeed: %v", err)
	}
	got, _ := f.cases.GetByID(context.Background(), c.ID)
	if got.Status != StatusFaxed {
		t.Errorf("expected FAXED, got %s", got.Status)
	}
}

func TestMarkFaxed_Forbidden(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)

	err := f.svc.MarkFaxed(context.Background(), pharmacySession(uuid.New()), c.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// -- Creation --

func TestCreateCase_ClinicDefaultsPharmacy(t *testing.T) {
	f := newFixture(t)
	sess := clinicSession(f.clinicOrg)

	c := &Case{PatientID: uuid.New()}
	if err := f.svc.CreateCase(context.Background(), sess, c); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if c.ClinicOrgID != f.clinicOrg {
		t.Errorf("expected clinic org from session, got %s", c.ClinicOrgID)
	}
	if c.PharmacyOrgID != f.pharmacyOrg {
		t.Errorf("expected first pharmacy org, got %s", c.PharmacyOrgID)
	}
	if c.Status != StatusDraft {
		t.Errorf("expected DRAFT, got %s", c.Status)
	}
	if c.Language != "FR" || c.Diagnosis != "DMLA" || c.Medication != "EYLEA_PFS_2MG" || c.Eye != "OD" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.ConsentInfoShare || c.ConsentPharmacyExec {
		t.Error("consent flags must stay false at creation")
	}
	if c.CreatedByUserID == nil || *c.CreatedByUserID != sess.UserID {
		t.Errorf("expected created_by from session")
	}
}

func TestCreateCase_PharmacyDefaultsClinic(t *testing.T) {
	f := newFixture(t)
	sess := pharmacySession(f.pharmacyOrg)

	c := &Case{PatientID: uuid.New()}
	if err := f.svc.CreateCase(context.Background(), sess, c); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if c.PharmacyOrgID != f.pharmacyOrg || c.ClinicOrgID != f.clinicOrg {
		t.Errorf("unexpected org defaulting: clinic=%s pharmacy=%s", c.ClinicOrgID, c.PharmacyOrgID)
	}
}

func TestCreateCase_RequiresPatient(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.CreateCase(context.Background(), clinicSession(f.clinicOrg), &Case{}); err == nil {
		t.Error("expected error for missing patient")
	}
}

// -- Listing --

func TestListCases_ByRoleKind(t *testing.T) {
	f := newFixture(t)
	otherPharmacy := uuid.New()

	mine := f.newCase(t)
	foreign := &Case{PatientID: uuid.New(), ClinicOrgID: uuid.New(), PharmacyOrgID: otherPharmacy, Status: StatusDraft}
	if err := f.cases.Create(context.Background(), foreign); err != nil {
		t.Fatal(err)
	}

	list, total, err := f.svc.ListCases(context.Background(), clinicSession(f.clinicOrg), 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("clinic listing leaked foreign cases: %+v", list)
	}

	list, total, err = f.svc.ListCases(context.Background(), pharmacySession(otherPharmacy), 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || list[0].ID != foreign.ID {
		t.Errorf("pharmacy listing wrong: %+v", list)
	}
}

// -- Download --

func TestDownloadDocument(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	sess := clinicSession(f.clinicOrg)

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatal(err)
	}
	docs, _ := f.docs.ListByCase(context.Background(), c.ID)

	for _, d := range docs {
		dl, err := f.svc.DownloadDocument(context.Background(), sess, d.ID)
		if err != nil {
			t.Fatalf("download %s failed: %v", d.Type, err)
		}
		if d.Type == esign.DocTypePharmacyConsent {
			if dl.ContentType != docxMIME {
				t.Errorf("expected docx MIME for consent, got %s", dl.ContentType)
			}
			if dl.Filename != "PHARMACY_CONSENT.docx" {
				t.Errorf("unexpected filename %s", dl.Filename)
			}
		} else {
			if dl.ContentType != "application/pdf" {
				t.Errorf("expected pdf MIME for %s, got %s", d.Type, dl.ContentType)
			}
			if !strings.HasSuffix(dl.Filename, ".pdf") {
				t.Errorf("unexpected filename %s", dl.Filename)
			}
		}
		if len(dl.Bytes) == 0 {
			t.Errorf("empty bytes for %s", d.Type)
		}
	}
}

func TestDownloadDocument_Scoped(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	sess := clinicSession(f.clinicOrg)

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatal(err)
	}
	docs, _ := f.docs.ListByCase(context.Background(), c.ID)

	_, err := f.svc.DownloadDocument(context.Background(), clinicSession(uuid.New()), docs[0].ID)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for foreign org, got %v", err)
	}

	_, err = f.svc.DownloadDocument(context.Background(), sess, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown document, got %v", err)
	}
}

func TestGetCase_Detail(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)
	sess := clinicSession(f.clinicOrg)
	f.patients.patients[c.PatientID] = &patient.Patient{
		ID:        c.PatientID,
		FirstName: "Marie",
		LastName:  "Tremblay",
	}

	if err := f.svc.StartSigning(context.Background(), sess, c.ID); err != nil {
		t.Fatalf("StartSigning: %v", err)
	}

	detail, err := f.svc.GetCase(context.Background(), sess, c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if detail.Patient == nil || detail.Patient.LastName != "Tremblay" {
		t.Fatalf("expected patient on detail, got %+v", detail.Patient)
	}
	if len(detail.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(detail.Documents))
	}
	if detail.Envelope == nil {
		t.Fatal("expected envelope on detail")
	}
}

func TestGetCase_UnknownPatientStillReturns(t *testing.T) {
	f := newFixture(t)
	c := f.newCase(t)

	detail, err := f.svc.GetCase(context.Background(), clinicSession(f.clinicOrg), c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if detail.Patient != nil {
		t.Fatalf("expected nil patient, got %+v", detail.Patient)
	}
	if detail.Envelope != nil {
		t.Fatal("unsigned case should have no envelope")
	}
}
