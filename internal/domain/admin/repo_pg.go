package admin

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orvio/clinic-portal/internal/platform/auth"
	"github.com/orvio/clinic-portal/internal/platform/db"
)

const orgColumns = `id, type, name, phone, fax, email, address, created_at, updated_at`

type orgRepoPG struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) OrganizationRepository {
	return &orgRepoPG{pool: pool}
}

// queryable abstracts pgxpool.Pool and pgx.Tx so repositories join an
// in-flight transaction when one is carried on the context.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *orgRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *orgRepoPG) Create(ctx context.Context, org *Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization (id, type, name, phone, fax, email, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		org.ID, org.Type, org.Name, org.Phone, org.Fax, org.Email, org.Address,
	)
	return err
}

func (r *orgRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organization WHERE id = $1`, id))
}

func (r *orgRepoPG) FirstByType(ctx context.Context, kind auth.OrgKind) (*Organization, error) {
	return r.scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organization WHERE type = $1 ORDER BY created_at LIMIT 1`, kind))
}

func (r *orgRepoPG) Update(ctx context.Context, org *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET
			name = $2, phone = $3, fax = $4, email = $5, address = $6, updated_at = NOW()
		WHERE id = $1`,
		org.ID, org.Name, org.Phone, org.Fax, org.Email, org.Address,
	)
	return err
}

func (r *orgRepoPG) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organization`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orgColumns+` FROM organization ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Type, &o.Name, &o.Phone, &o.Fax, &o.Email, &o.Address, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, &o)
	}
	return orgs, total, rows.Err()
}

func (r *orgRepoPG) scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Type, &o.Name, &o.Phone, &o.Fax, &o.Email, &o.Address, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
