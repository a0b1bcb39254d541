package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/orvio/clinic-portal/internal/platform/auth"
)

// Organization maps to the organization table. Type is fixed at creation
// and never updated afterwards.
type Organization struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	Type      auth.OrgKind `db:"type" json:"type"`
	Name      string       `db:"name" json:"name"`
	Phone     *string      `db:"phone" json:"phone,omitempty"`
	Fax       *string      `db:"fax" json:"fax,omitempty"`
	Email     *string      `db:"email" json:"email,omitempty"`
	Address   *string      `db:"address" json:"address,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
