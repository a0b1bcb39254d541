package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	orgs OrganizationRepository
}

func NewService(orgs OrganizationRepository) *Service {
	return &Service{orgs: orgs}
}

func (s *Service) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	if !org.Type.Valid() {
		return fmt.Errorf("invalid organization type %q", org.Type)
	}
	return s.orgs.Create(ctx, org)
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

// UpdateOrganization updates name and contact details. The organization
// type is fixed at creation and is never changed here.
func (s *Service) UpdateOrganization(ctx context.Context, org *Organization) error {
	if org.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	existing, err := s.orgs.GetByID(ctx, org.ID)
	if err != nil {
		return err
	}
	org.Type = existing.Type
	return s.orgs.Update(ctx, org)
}

func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.orgs.List(ctx, limit, offset)
}
