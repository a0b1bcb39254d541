package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/orvio/clinic-portal/internal/platform/auth"
)

// bcryptCost matches the cost used by the seed fixtures.
const bcryptCost = 12

// ErrInvalidCredentials covers both unknown email and wrong password so
// login responses never reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

// Login verifies the credentials and builds a session from the user's
// first membership.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	ms, err := s.users.Memberships(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("user %s has no memberships", user.Email)
	}
	m := ms[0]

	return &auth.Session{
		UserID: user.ID,
		OrgID:  m.OrgID,
		Role:   m.Role,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

// CreateUser hashes the password and stores the user with an initial
// membership.
func (s *Service) CreateUser(ctx context.Context, email, name, password string, orgID uuid.UUID, role auth.Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role.String())
	}
	if orgID == uuid.Nil {
		return nil, fmt.Errorf("org_id is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{Email: email, Name: name, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.AddMembership(ctx, &Membership{UserID: user.ID, OrgID: orgID, Role: role}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) UserMemberships(ctx context.Context, userID uuid.UUID) ([]*Membership, error) {
	return s.users.Memberships(ctx, userID)
}
