package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/orvio/clinic-portal/internal/platform/auth"
)

// User maps to the app_user table. PasswordHash is a bcrypt hash and is
// never serialized.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Membership maps to the membership table: one user's role within one
// organization. A session is built from the user's first membership.
type Membership struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	OrgID     uuid.UUID `db:"org_id" json:"org_id"`
	Role      auth.Role `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
