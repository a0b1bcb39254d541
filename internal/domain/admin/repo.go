package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/orvio/clinic-portal/internal/platform/auth"
)

// OrganizationRepository defines the persistence interface for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FirstByType(ctx context.Context, kind auth.OrgKind) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	List(ctx context.Context, limit, offset int) ([]*Organization, int, error)
}
