// Package esign defines the document-signing capability used by the case
// workflow and the mock provider that satisfies it today. One provider is
// selected at startup from configuration and injected into the workflow;
// there is no runtime provider switching.
package esign

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DocType identifies one of the fixed set of documents produced per case.
type DocType string

const (
	DocTypeEnrollment      DocType = "EYEQNOW_ENROLLMENT"
	DocTypePharmacyConsent DocType = "PHARMACY_CONSENT"
	DocTypePrescription    DocType = "PRESCRIPTION"
)

// Valid reports whether the document type is one of the known types.
func (t DocType) Valid() bool {
	switch t {
	case DocTypeEnrollment, DocTypePharmacyConsent, DocTypePrescription:
		return true
	}
	return false
}

// FileExt returns the file extension documents of this type are stored and
// served with. The pharmacy consent template ships as DOCX; everything else
// is PDF.
func (t DocType) FileExt() string {
	if t == DocTypePharmacyConsent {
		return "docx"
	}
	return "pdf"
}

// Envelope describes the provider-side signing transaction.
type Envelope struct {
	Provider           string `json:"provider"`
	ProviderEnvelopeID string `json:"provider_envelope_id"`
}

// CompletedDoc is one signed artifact returned by a provider.
type CompletedDoc struct {
	Type            DocType
	Bytes           []byte
	TemplateVersion string
}

// Provider is the signing capability contract. The interface does not assume
// synchronous completion; a real integration may return a pending envelope
// and finish through callbacks. The mock completes in-line.
type Provider interface {
	Name() string
	CreateAndCompleteEnvelope(ctx context.Context, caseID uuid.UUID, language string) (Envelope, []CompletedDoc, error)
}

// Select resolves the configured provider name once, at startup.
func Select(name, formsDir string) (Provider, error) {
	switch name {
	case "mock":
		return NewMockProvider(formsDir), nil
	case "docusign":
		return nil, fmt.Errorf("esign: docusign provider not implemented yet, set ESIGN_PROVIDER=mock")
	default:
		return nil, fmt.Errorf("esign: unknown provider %q", name)
	}
}
