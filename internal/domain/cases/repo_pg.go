package cases

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orvio/clinic-portal/internal/platform/db"
)

const caseColumns = `id, patient_id, clinic_org_id, pharmacy_org_id, status, language,
	diagnosis, diagnosis_other, medication, eye, injection_doses,
	insurance_public, insurance_private, insurance_self_pay, private_insurer, private_group, private_cert,
	best_time_morning, best_time_afternoon, best_time_evening, can_leave_message,
	prefer_email, prefer_phone, prefer_cell,
	consent_info_share, consent_insurer_contact, offered_usual_pharmacy, consent_pharmacy_exec,
	created_by_user_id, created_at, updated_at`

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// -- Case Repository --

type caseRepoPG struct {
	pool *pgxpool.Pool
}

func NewCaseRepo(pool *pgxpool.Pool) CaseRepository {
	return &caseRepoPG{pool: pool}
}

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO case_record (
			id, patient_id, clinic_org_id, pharmacy_org_id, status, language,
			diagnosis, diagnosis_other, medication, eye, injection_doses,
			insurance_public, insurance_private, insurance_self_pay,
			private_insurer, private_group, private_cert,
			best_time_morning, best_time_afternoon, best_time_evening, can_leave_message,
			prefer_email, prefer_phone, prefer_cell,
			created_by_user_id
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24,
			$25
		)`,
		c.ID, c.PatientID, c.ClinicOrgID, c.PharmacyOrgID, c.Status, c.Language,
		c.Diagnosis, c.DiagnosisOther, c.Medication, c.Eye, c.InjectionDoses,
		c.InsurancePublic, c.InsurancePrivate, c.InsuranceSelfPay,
		c.PrivateInsurer, c.PrivateGroup, c.PrivateCert,
		c.BestTimeMorning, c.BestTimeAfternoon, c.BestTimeEvening, c.CanLeaveMessage,
		c.PreferEmail, c.PreferPhone, c.PreferCell,
		c.CreatedByUserID,
	)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseColumns+` FROM case_record WHERE id = $1`, id))
}

func (r *caseRepoPG) MarkSigned(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE case_record SET
			status = 'SIGNED',
			consent_info_share = TRUE,
			consent_insurer_contact = TRUE,
			offered_usual_pharmacy = TRUE,
			consent_pharmacy_exec = TRUE,
			updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func (r *caseRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE case_record SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

func (r *caseRepoPG) ListByClinicOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Case, int, error) {
	return r.listByOrg(ctx, "clinic_org_id", orgID, limit, offset)
}

func (r *caseRepoPG) ListByPharmacyOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Case, int, error) {
	return r.listByOrg(ctx, "pharmacy_org_id", orgID, limit, offset)
}

func (r *caseRepoPG) listByOrg(ctx context.Context, column string, orgID uuid.UUID, limit, offset int) ([]*Case, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM case_record WHERE `+column+` = $1`, orgID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseColumns+` FROM case_record WHERE `+column+` = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list, err := collectCases(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *caseRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Case, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+caseColumns+` FROM case_record WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCases(rows)
}

func collectCases(rows pgx.Rows) ([]*Case, error) {
	var list []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(
		&c.ID, &c.PatientID, &c.ClinicOrgID, &c.PharmacyOrgID, &c.Status, &c.Language,
		&c.Diagnosis, &c.DiagnosisOther, &c.Medication, &c.Eye, &c.InjectionDoses,
		&c.InsurancePublic, &c.InsurancePrivate, &c.InsuranceSelfPay,
		&c.PrivateInsurer, &c.PrivateGroup, &c.PrivateCert,
		&c.BestTimeMorning, &c.BestTimeAfternoon, &c.BestTimeEvening, &c.CanLeaveMessage,
		&c.PreferEmail, &c.PreferPhone, &c.PreferCell,
		&c.ConsentInfoShare, &c.ConsentInsurerContact, &c.OfferedUsualPharmacy, &c.ConsentPharmacyExec,
		&c.CreatedByUserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// -- Document Repository --

type docRepoPG struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) DocumentRepository {
	return &docRepoPG{pool: pool}
}

func (r *docRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const docColumns = `id, case_id, type, language, template_version, storage_key, sha256, signed_at, created_at`

func (r *docRepoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document (id, case_id, type, language, template_version, storage_key, sha256, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.CaseID, d.Type, d.Language, d.TemplateVersion, d.StorageKey, d.SHA256, d.SignedAt,
	)
	return err
}

func (r *docRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var d Document
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+docColumns+` FROM document WHERE id = $1`, id).Scan(
		&d.ID, &d.CaseID, &d.Type, &d.Language, &d.TemplateVersion, &d.StorageKey, &d.SHA256, &d.SignedAt, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *docRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+docColumns+` FROM document WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.CaseID, &d.Type, &d.Language, &d.TemplateVersion, &d.StorageKey, &d.SHA256, &d.SignedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// -- Envelope Repository --

type envelopeRepoPG struct {
	pool *pgxpool.Pool
}

func NewEnvelopeRepo(pool *pgxpool.Pool) EnvelopeRepository {
	return &envelopeRepoPG{pool: pool}
}

func (r *envelopeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *envelopeRepoPG) Upsert(ctx context.Context, e *Envelope) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	// The UNIQUE constraint on case_id makes this a one-row-per-case
	// overwrite; the original row id survives re-signs.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO envelope (id, case_id, provider, provider_envelope_id, status, sent_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (case_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			provider_envelope_id = EXCLUDED.provider_envelope_id,
			status = EXCLUDED.status,
			sent_at = EXCLUDED.sent_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW()
		RETURNING id`,
		e.ID, e.CaseID, e.Provider, e.ProviderEnvelopeID, e.Status, e.SentAt, e.CompletedAt,
	).Scan(&e.ID)
}

func (r *envelopeRepoPG) GetByCase(ctx context.Context, caseID uuid.UUID) (*Envelope, error) {
	var e Envelope
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, case_id, provider, provider_envelope_id, status, sent_at, completed_at, created_at, updated_at
		FROM envelope WHERE case_id = $1`, caseID).Scan(
		&e.ID, &e.CaseID, &e.Provider, &e.ProviderEnvelopeID, &e.Status, &e.SentAt, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
