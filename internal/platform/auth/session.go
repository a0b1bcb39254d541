package auth

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CookieName is the fixed name of the session cookie.
const CookieName = "orvio_session"

// Session is the payload carried in the signed cookie: who the user is, the
// active organization, and the role within it. Kept small on purpose.
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	OrgID  uuid.UUID `json:"org_id"`
	Role   Role      `json:"role"`
	Email  string    `json:"email"`
	Name   string    `json:"name,omitempty"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Manager issues and verifies session tokens. Verification is stateless:
// there is no server-side session store and no revocation list, so a leaked
// token stays valid until it expires.
type Manager struct {
	secret        []byte
	ttl           time.Duration
	secureCookies bool
}

// NewManager builds a session manager. Secret length is enforced by config
// validation at startup, before this is ever constructed.
func NewManager(secret []byte, ttl time.Duration, secureCookies bool) *Manager {
	return &Manager{secret: secret, ttl: ttl, secureCookies: secureCookies}
}

// Issue signs a session token with the configured TTL.
func (m *Manager) Issue(s Session) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		OrgID: s.OrgID.String(),
		Role:  s.Role.String(),
		Email: s.Email,
		Name:  s.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks signature and expiry and returns the session, or nil for any
// malformed, expired, or foreign token. It never returns an error: callers
// treat a nil session as "not logged in", not as a failure.
func (m *Manager) Verify(token string) *Session {
	if token == "" {
		return nil
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return nil
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil
	}

	return &Session{
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
		Email:  claims.Email,
		Name:   claims.Name,
	}
}

// SetCookie writes the session cookie on the response.
func (m *Manager) SetCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secureCookies,
		MaxAge:   int(m.ttl / time.Second),
	})
}

// ClearCookie expires the session cookie immediately (logout).
func (m *Manager) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secureCookies,
		MaxAge:   -1,
	})
}
