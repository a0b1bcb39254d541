package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const sessionKey contextKey = "portal_session"

// LoginPath and UnauthorizedPath are where browser requests are redirected
// when authentication or authorization fails.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Load reads the session cookie and, when it verifies, attaches the session
// to the request context. An invalid or absent cookie is not an error:
// downstream role gates decide what "no session" means.
func (m *Manager) Load() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err == nil {
				if s := m.Verify(cookie.Value); s != nil {
					ctx := context.WithValue(c.Request().Context(), sessionKey, s)
					c.SetRequest(c.Request().WithContext(ctx))
				}
			}
			return next(c)
		}
	}
}

// FromContext returns the verified session on the request context, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// WithSession returns a context carrying the given session. Used by tests and
// by CLI paths that act on behalf of a user.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// RequireRole gates a route group on the session role. Browser requests are
// redirected (to /login without a session, /unauthorized on a role mismatch);
// API clients get 401/403 JSON instead.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := FromContext(c.Request().Context())
			if s == nil {
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, LoginPath)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
			}
			for _, allowed := range roles {
				if s.Role == allowed {
					return next(c)
				}
			}
			if wantsHTML(c) {
				return c.Redirect(http.StatusFound, UnauthorizedPath)
			}
			return echo.NewHTTPError(http.StatusForbidden, "role not allowed")
		}
	}
}

func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "text/html")
}
