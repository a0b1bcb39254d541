package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the case workflow.
const (
	ActionCaseCreated = "CASE_CREATED"
	ActionCaseSigned  = "CASE_SIGNED"
	ActionCaseFaxed   = "CASE_FAXED"
)

// Event maps to the audit_event table. Rows are append-only: no update or
// delete path exists anywhere in the codebase.
type Event struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	OrgID      *uuid.UUID     `db:"org_id" json:"org_id,omitempty"`
	UserID     *uuid.UUID     `db:"user_id" json:"user_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   *string        `db:"entity_id" json:"entity_id,omitempty"`
	Meta       map[string]any `db:"meta_json" json:"meta,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
