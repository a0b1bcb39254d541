package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service records and queries audit events. A failed write is logged but
// never fails the calling operation: the workflow outcome has already
// happened by the time the event is recorded.
type Service struct {
	events Repository
	logger zerolog.Logger
}

func NewService(events Repository, logger zerolog.Logger) *Service {
	return &Service{events: events, logger: logger}
}

// Record appends one event.
func (s *Service) Record(ctx context.Context, ev *Event) {
	if ev.Action == "" || ev.EntityType == "" {
		s.logger.Error().Interface("event", ev).Msg("audit event missing action or entity type")
		return
	}
	if err := s.events.Create(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("action", ev.Action).
			Str("entity_type", ev.EntityType).
			Msg("failed to record audit event")
	}
}

func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]*Event, int, error) {
	return s.events.List(ctx, limit, offset)
}

func (s *Service) ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]*Event, int, error) {
	if entityType == "" || entityID == "" {
		return nil, 0, fmt.Errorf("entity_type and entity_id are required")
	}
	return s.events.ListByEntity(ctx, entityType, entityID, limit, offset)
}

func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Event, int, error) {
	return s.events.ListByOrg(ctx, orgID, limit, offset)
}
