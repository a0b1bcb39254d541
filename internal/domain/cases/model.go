package cases

import (
	"time"

	"github.com/google/uuid"

	"github.com/orvio/clinic-portal/internal/domain/patient"
	"github.com/orvio/clinic-portal/internal/platform/auth"
	"github.com/orvio/clinic-portal/internal/platform/esign"
)

// Status is the case lifecycle state. Valid transitions are
// DRAFT -> SIGNED -> FAXED, with SIGNED -> SIGNED allowed for re-signing.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusSigned Status = "SIGNED"
	StatusFaxed  Status = "FAXED"
)

// Case maps to the case_record table: one patient's treatment-and-consent
// bundle routed from a clinic to a pharmacy. A case always references
// exactly one clinic org and one pharmacy org and is never deleted.
type Case struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	ClinicOrgID   uuid.UUID `db:"clinic_org_id" json:"clinic_org_id"`
	PharmacyOrgID uuid.UUID `db:"pharmacy_org_id" json:"pharmacy_org_id"`
	Status        Status    `db:"status" json:"status"`
	Language      string    `db:"language" json:"language"`

	Diagnosis      string  `db:"diagnosis" json:"diagnosis"`
	DiagnosisOther *string `db:"diagnosis_other" json:"diagnosis_other,omitempty"`
	Medication     string  `db:"medication" json:"medication"`
	Eye            string  `db:"eye" json:"eye"`
	InjectionDoses *int    `db:"injection_doses" json:"injection_doses,omitempty"`

	InsurancePublic  bool    `db:"insurance_public" json:"insurance_public"`
	InsurancePrivate bool    `db:"insurance_private" json:"insurance_private"`
	InsuranceSelfPay bool    `db:"insurance_self_pay" json:"insurance_self_pay"`
	PrivateInsurer   *string `db:"private_insurer" json:"private_insurer,omitempty"`
	PrivateGroup     *string `db:"private_group" json:"private_group,omitempty"`
	PrivateCert      *string `db:"private_cert" json:"private_cert,omitempty"`

	BestTimeMorning   bool  `db:"best_time_morning" json:"best_time_morning"`
	BestTimeAfternoon bool  `db:"best_time_afternoon" json:"best_time_afternoon"`
	BestTimeEvening   bool  `db:"best_time_evening" json:"best_time_evening"`
	CanLeaveMessage   *bool `db:"can_leave_message" json:"can_leave_message,omitempty"`
	PreferEmail       bool  `db:"prefer_email" json:"prefer_email"`
	PreferPhone       bool  `db:"prefer_phone" json:"prefer_phone"`
	PreferCell        bool  `db:"prefer_cell" json:"prefer_cell"`

	// Consent flags stay false at creation and are flipped together when
	// the signing ceremony completes. See Service.StartSigning.
	ConsentInfoShare      bool `db:"consent_info_share" json:"consent_info_share"`
	ConsentInsurerContact bool `db:"consent_insurer_contact" json:"consent_insurer_contact"`
	OfferedUsualPharmacy  bool `db:"offered_usual_pharmacy" json:"offered_usual_pharmacy"`
	ConsentPharmacyExec   bool `db:"consent_pharmacy_exec" json:"consent_pharmacy_exec"`

	CreatedByUserID *uuid.UUID `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// OrgFor returns the org reference a session of the given kind is scoped
// against. Clinic roles are checked against the clinic org, pharmacy roles
// against the pharmacy org; never an OR of both.
func (c *Case) OrgFor(kind auth.OrgKind) uuid.UUID {
	if kind == auth.OrgPharmacy {
		return c.PharmacyOrgID
	}
	return c.ClinicOrgID
}

// Document maps to the document table. Rows are append-only: re-signing a
// case inserts new rows rather than touching existing ones.
type Document struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	CaseID          uuid.UUID     `db:"case_id" json:"case_id"`
	Type            esign.DocType `db:"type" json:"type"`
	Language        string        `db:"language" json:"language"`
	TemplateVersion *string       `db:"template_version" json:"template_version,omitempty"`
	StorageKey      string        `db:"storage_key" json:"storage_key"`
	SHA256          string        `db:"sha256" json:"sha256"`
	SignedAt        time.Time     `db:"signed_at" json:"signed_at"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// Envelope maps to the envelope table. One logical envelope exists per
// case; re-signing overwrites provider id, status and timestamps in place.
type Envelope struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	CaseID             uuid.UUID  `db:"case_id" json:"case_id"`
	Provider           string     `db:"provider" json:"provider"`
	ProviderEnvelopeID string     `db:"provider_envelope_id" json:"provider_envelope_id"`
	Status             string     `db:"status" json:"status"`
	SentAt             *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Detail bundles a case with its accumulated documents and envelope for
// the case page.
type Detail struct {
	Case      *Case            `json:"case"`
	Patient   *patient.Patient `json:"patient,omitempty"`
	Documents []*Document      `json:"documents"`
	Envelope  *Envelope        `json:"envelope,omitempty"`
}
