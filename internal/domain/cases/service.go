package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orvio/clinic-portal/internal/domain/admin"
	"github.com/orvio/clinic-portal/internal/domain/audit"
	"github.com/orvio/clinic-portal/internal/domain/patient"
	"github.com/orvio/clinic-portal/internal/platform/auth"
	"github.com/orvio/clinic-portal/internal/platform/esign"
	"github.com/orvio/clinic-portal/internal/platform/ids"
	"github.com/orvio/clinic-portal/internal/platform/storage"
)

var (
	ErrNotFound  = errors.New("case not found")
	ErrForbidden = errors.New("forbidden")
)

// Creation defaults mirror the intake form.
const (
	defaultLanguage   = "FR"
	defaultDiagnosis  = "DMLA"
	defaultMedication = "EYLEA_PFS_2MG"
	defaultEye        = "OD"
)

// OrgDirectory resolves the default clinic or pharmacy org when a case is
// created by staff on the other side of the handoff.
type OrgDirectory interface {
	FirstByType(ctx context.Context, kind auth.OrgKind) (*admin.Organization, error)
}

// PatientDirectory looks up the patient attached to a case for detail views.
type PatientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// AuditLog appends workflow events to the audit trail.
type AuditLog interface {
	Record(ctx context.Context, ev *audit.Event)
}

// Service orchestrates the case lifecycle: creation, the signing ceremony
// and the manual fax step. Every read or mutation of a case routes through
// caseForSession so the org scoping check cannot be missed.
type Service struct {
	cases     CaseRepository
	docs      DocumentRepository
	envelopes EnvelopeRepository
	orgs      OrgDirectory
	patients  PatientDirectory
	store     storage.Driver
	provider  esign.Provider
	audit     AuditLog
	logger    zerolog.Logger

	mu      sync.Mutex
	signing map[uuid.UUID]*sync.Mutex
}

func NewService(
	cases CaseRepository,
	docs DocumentRepository,
	envelopes EnvelopeRepository,
	orgs OrgDirectory,
	patients PatientDirectory,
	store storage.Driver,
	provider esign.Provider,
	auditLog AuditLog,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cases:     cases,
		docs:      docs,
		envelopes: envelopes,
		orgs:      orgs,
		patients:  patients,
		store:     store,
		provider:  provider,
		audit:     auditLog,
		logger:    logger,
		signing:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// caseForSession is the single authorize-then-scope chokepoint. It returns
// ErrNotFound when the id does not exist and ErrForbidden when the case's
// org reference for the session's role kind does not match the session org.
func (s *Service) caseForSession(ctx context.Context, sess *auth.Session, caseID uuid.UUID) (*Case, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, ErrNotFound
	}
	if c.OrgFor(sess.Role.Kind) != sess.OrgID {
		return nil, ErrForbidden
	}
	return c, nil
}

// signingLock serializes StartSigning per case so concurrent calls cannot
// interleave envelope upserts and document inserts.
func (s *Service) signingLock(caseID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.signing[caseID]
	if !ok {
		mu = &sync.Mutex{}
		s.signing[caseID] = mu
	}
	return mu
}

// CreateCase stores a new DRAFT case. The clinic and pharmacy org
// references default from the session: the session's own org fills its
// side, the directory's first org of the other kind fills the other.
func (s *Service) CreateCase(ctx context.Context, sess *auth.Session, c *Case) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}

	switch sess.Role.Kind {
	case auth.OrgClinic:
		c.ClinicOrgID = sess.OrgID
		pharmacy, err := s.orgs.FirstByType(ctx, auth.OrgPharmacy)
		if err != nil {
			return fmt.Errorf("no pharmacy organization exists: %w", err)
		}
		c.PharmacyOrgID = pharmacy.ID
	case auth.OrgPharmacy:
		c.PharmacyOrgID = sess.OrgID
		clinic, err := s.orgs.FirstByType(ctx, auth.OrgClinic)
		if err != nil {
			return fmt.Errorf("no clinic organization exists: %w", err)
		}
		c.ClinicOrgID = clinic.ID
	}

	c.Status = StatusDraft
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.Diagnosis == "" {
		c.Diagnosis = defaultDiagnosis
	}
	if c.Medication == "" {
		c.Medication = defaultMedication
	}
	if c.Eye == "" {
		c.Eye = defaultEye
	}
	userID := sess.UserID
	c.CreatedByUserID = &userID

	if err := s.cases.Create(ctx, c); err != nil {
		return err
	}

	entityID := c.ID.String()
	s.audit.Record(ctx, &audit.Event{
		OrgID:      &sess.OrgID,
		UserID:     &userID,
		Action:     audit.ActionCaseCreated,
		EntityType: "Case",
		EntityID:   &entityID,
	})
	return nil
}

// GetCase returns the case with its documents and envelope.
func (s *Service) GetCase(ctx context.Context, sess *auth.Session, caseID uuid.UUID) (*Detail, error) {
	c, err := s.caseForSession(ctx, sess, caseID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docs.ListByCase(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	env, err := s.envelopes.GetByCase(ctx, c.ID)
	if err != nil {
		env = nil // a case that was never signed has no envelope
	}
	pat, err := s.patients.GetByID(ctx, c.PatientID)
	if err != nil {
		pat = nil
	}
	return &Detail{Case: c, Patient: pat, Documents: docs, Envelope: env}, nil
}

// ListCases returns the cases visible to the session: clinic roles see
// cases whose clinic org matches, pharmacy roles those whose pharmacy org
// matches.
func (s *Service) ListCases(ctx context.Context, sess *auth.Session, limit, offset int) ([]*Case, int, error) {
	if sess.Role.Kind == auth.OrgPharmacy {
		return s.cases.ListByPharmacyOrg(ctx, sess.OrgID, limit, offset)
	}
	return s.cases.ListByClinicOrg(ctx, sess.OrgID, limit, offset)
}

// ListCasesByPatient returns a patient's cases filtered down to the ones
// the session may see.
func (s *Service) ListCasesByPatient(ctx context.Context, sess *auth.Session, patientID uuid.UUID) ([]*Case, error) {
	all, err := s.cases.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var visible []*Case
	for _, c := range all {
		if c.OrgFor(sess.Role.Kind) == sess.OrgID {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// StartSigning runs the signing ceremony for a case: it asks the provider
// for a completed envelope, overwrites the case's envelope record, stores
// every returned document and appends an immutable document row for each,
// then marks the case SIGNED. Completing the ceremony also flips the four
// consent flags true; consent capture and document execution are treated
// as the same event here. The sequence is deliberately not one database
// transaction: documents written before a later failure stay attached, and
// re-running accumulates a fresh set of document rows.
func (s *Service) StartSigning(ctx context.Context, sess *auth.Session, caseID uuid.UUID) error {
	c, err := s.caseForSession(ctx, sess, caseID)
	if err != nil {
		return err
	}

	mu := s.signingLock(c.ID)
	mu.Lock()
	defer mu.Unlock()

	env, completed, err := s.provider.CreateAndCompleteEnvelope(ctx, c.ID, c.Language)
	if err != nil {
		return fmt.Errorf("signing provider: %w", err)
	}

	now := time.Now().UTC()
	envelope := &Envelope{
		CaseID:             c.ID,
		Provider:           env.Provider,
		ProviderEnvelopeID: env.ProviderEnvelopeID,
		Status:             "completed",
		SentAt:             &now,
		CompletedAt:        &now,
	}
	if err := s.envelopes.Upsert(ctx, envelope); err != nil {
		return fmt.Errorf("upsert envelope: %w", err)
	}

	for _, doc := range completed {
		key := fmt.Sprintf("cases/%s/%s.%s.%s",
			c.ID, ids.New(), strings.ToLower(string(doc.Type)), doc.Type.FileExt())

		stored, err := s.store.Put(ctx, key, doc.Bytes)
		if err != nil {
			return fmt.Errorf("store %s: %w", doc.Type, err)
		}

		var version *string
		if doc.TemplateVersion != "" {
			v := doc.TemplateVersion
			version = &v
		}
		if err := s.docs.Create(ctx, &Document{
			CaseID:          c.ID,
			Type:            doc.Type,
			Language:        c.Language,
			TemplateVersion: version,
			StorageKey:      stored.Key,
			SHA256:          stored.SHA256,
			SignedAt:        now,
		}); err != nil {
			return fmt.Errorf("record %s document: %w", doc.Type, err)
		}
	}

	if err := s.cases.MarkSigned(ctx, c.ID); err != nil {
		return fmt.Errorf("mark signed: %w", err)
	}

	s.logger.Info().
		Str("case_id", c.ID.String()).
		Str("provider", env.Provider).
		Int("documents", len(completed)).
		Msg("case signed")

	entityID := c.ID.String()
	userID := sess.UserID
	s.audit.Record(ctx, &audit.Event{
		OrgID:      &sess.OrgID,
		UserID:     &userID,
		Action:     audit.ActionCaseSigned,
		EntityType: "Case",
		EntityID:   &entityID,
		Meta: map[string]any{
			"envelopeId":         envelope.ID.String(),
			"providerEnvelopeId": envelope.ProviderEnvelopeID,
		},
	})
	return nil
}

// MarkFaxed records that staff faxed the case bundle manually. There is no
// precondition on the current status: faxing a never-signed case succeeds.
func (s *Service) MarkFaxed(ctx context.Context, sess *auth.Session, caseID uuid.UUID) error {
	c, err := s.caseForSession(ctx, sess, caseID)
	if err != nil {
		return err
	}

	if err := s.cases.SetStatus(ctx, c.ID, StatusFaxed); err != nil {
		return err
	}

	entityID := c.ID.String()
	userID := sess.UserID
	s.audit.Record(ctx, &audit.Event{
		OrgID:      &sess.OrgID,
		UserID:     &userID,
		Action:     audit.ActionCaseFaxed,
		EntityType: "Case",
		EntityID:   &entityID,
		Meta:       map[string]any{"note": "Manual fax (Eye-Q/NOW) marked by user"},
	})
	return nil
}

// Download is what DownloadDocument returns: the bytes plus the headers
// the HTTP layer needs.
type Download struct {
	Document    *Document
	Bytes       []byte
	Filename    string
	ContentType string
}

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DownloadDocument fetches a stored document's bytes after scoping the
// session against the owning case. The content type follows the extension
// embedded in the storage key.
func (s *Service) DownloadDocument(ctx context.Context, sess *auth.Session, docID uuid.UUID) (*Download, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, ErrNotFound
	}
	if _, err := s.caseForSession(ctx, sess, doc.CaseID); err != nil {
		return nil, err
	}

	data, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc.StorageKey, err)
	}

	ext := "pdf"
	contentType := "application/pdf"
	if strings.HasSuffix(doc.StorageKey, ".docx") {
		ext = "docx"
		contentType = docxMIME
	}

	return &Download{
		Document:    doc,
		Bytes:       data,
		Filename:    fmt.Sprintf("%s.%s", doc.Type, ext),
		ContentType: contentType,
	}, nil
}
