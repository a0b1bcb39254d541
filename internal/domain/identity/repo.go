package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the persistence interface for users and their
// memberships.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)

	AddMembership(ctx context.Context, m *Membership) error
	// Memberships returns the user's memberships ordered oldest first.
	Memberships(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
}
