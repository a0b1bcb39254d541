package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is intentionally append-plus-read only.
type Repository interface {
	Create(ctx context.Context, ev *Event) error
	List(ctx context.Context, limit, offset int) ([]*Event, int, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*Event, int, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Event, int, error)
}
