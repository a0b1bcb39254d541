package cases

import (
	"context"

	"github.com/google/uuid"
)

// CaseRepository defines the persistence interface for cases. There is no
// delete: cases live forever.
type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	// MarkSigned sets the status to SIGNED and flips the four consent
	// flags true in one statement.
	MarkSigned(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	ListByClinicOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Case, int, error)
	ListByPharmacyOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Case, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Case, error)
}

// DocumentRepository is append-plus-read only; documents are immutable.
type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Document, error)
}

// EnvelopeRepository maintains the one-envelope-per-case record.
type EnvelopeRepository interface {
	// Upsert inserts the envelope for its case or overwrites the existing
	// row's provider fields and timestamps. The row id is stable across
	// re-signs.
	Upsert(ctx context.Context, e *Envelope) error
	GetByCase(ctx context.Context, caseID uuid.UUID) (*Envelope, error)
}
