package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orvio/clinic-portal/internal/platform/db"
)

const eventColumns = `id, org_id, user_id, action, entity_type, entity_id, meta_json, created_at`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, ev *Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	var meta *string
	if ev.Meta != nil {
		b, err := json.Marshal(ev.Meta)
		if err != nil {
			return err
		}
		s := string(b)
		meta = &s
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_event (id, org_id, user_id, action, entity_type, entity_id, meta_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.OrgID, ev.UserID, ev.Action, ev.EntityType, ev.EntityID, meta,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Event, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_event`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventColumns+` FROM audit_event ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*Event, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_event WHERE entity_type = $1 AND entity_id = $2`,
		entityType, entityID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventColumns+` FROM audit_event
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		entityType, entityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_event WHERE org_id = $1`, orgID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventColumns+` FROM audit_event
		WHERE org_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func collect(rows pgx.Rows, total int) ([]*Event, int, error) {
	var events []*Event
	for rows.Next() {
		var ev Event
		var meta *string
		if err := rows.Scan(&ev.ID, &ev.OrgID, &ev.UserID, &ev.Action, &ev.EntityType, &ev.EntityID, &meta, &ev.CreatedAt); err != nil {
			return nil, 0, err
		}
		if meta != nil {
			if err := json.Unmarshal([]byte(*meta), &ev.Meta); err != nil {
				return nil, 0, err
			}
		}
		events = append(events, &ev)
	}
	return events, total, rows.Err()
}
