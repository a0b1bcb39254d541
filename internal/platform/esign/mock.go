package esign

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Template file names looked up under the forms directory, and the template
// versions recorded on the resulting documents.
const (
	enrollmentTemplate      = "enrollment_form_fr.pdf"
	pharmacyConsentTemplate = "pharmacy_consent_fr.docx"
	prescriptionTemplate    = "prescription_fr.pdf"

	enrollmentVersion      = "PP-EYL-CA-0371-1"
	pharmacyConsentVersion = "KB-Consent-v1"
	prescriptionVersion    = "Rx-v1"
)

// MockProvider completes an envelope immediately, returning the static
// template files as the "signed" artifacts. It exists so the workflow,
// storage, and persistence paths can be exercised before a real signing
// integration is configured. Only FR templates ship today.
type MockProvider struct {
	formsDir string
}

func NewMockProvider(formsDir string) *MockProvider {
	return &MockProvider{formsDir: formsDir}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) CreateAndCompleteEnvelope(_ context.Context, caseID uuid.UUID, language string) (Envelope, []CompletedDoc, error) {
	env := Envelope{
		Provider:           p.Name(),
		ProviderEnvelopeID: "mock_" + uuid.NewString(),
	}

	templates := []struct {
		docType DocType
		file    string
		version string
	}{
		{DocTypeEnrollment, enrollmentTemplate, enrollmentVersion},
		{DocTypePharmacyConsent, pharmacyConsentTemplate, pharmacyConsentVersion},
		{DocTypePrescription, prescriptionTemplate, prescriptionVersion},
	}

	docs := make([]CompletedDoc, 0, len(templates))
	for _, tpl := range templates {
		data, err := os.ReadFile(filepath.Join(p.formsDir, tpl.file))
		if err != nil {
			return Envelope{}, nil, fmt.Errorf("read template %s for case %s: %w", tpl.file, caseID, err)
		}
		docs = append(docs, CompletedDoc{
			Type:            tpl.docType,
			Bytes:           data,
			TemplateVersion: tpl.version,
		})
	}

	return env, docs, nil
}
