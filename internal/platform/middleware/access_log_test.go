package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orvio/clinic-portal/internal/platform/auth"
)

func TestAccessLog_RecordsSessionAndEntity(t *testing.T) {
	var recorded []AccessEntry
	recorder := AccessRecorderFunc(func(e AccessEntry) error {
		recorded = append(recorded, e)
		return nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/123/sign", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")

	sess := &auth.Session{UserID: uuid.New(), OrgID: uuid.New(), Role: auth.ClinicStaff}
	c.SetRequest(req.WithContext(auth.WithSession(req.Context(), sess)))

	logger := zerolog.New(io.Discard)
	h := AccessLog(logger, recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}

	if len(recorded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(recorded))
	}
	entry := recorded[0]
	if entry.UserID != sess.UserID.String() {
		t.Errorf("expected user %s, got %s", sess.UserID, entry.UserID)
	}
	if entry.Role != "CLINIC_STAFF" {
		t.Errorf("expected CLINIC_STAFF, got %s", entry.Role)
	}
	if entry.EntityType != "cases" {
		t.Errorf("expected entity cases, got %s", entry.EntityType)
	}
	if entry.Action != "create" {
		t.Errorf("expected action create, got %s", entry.Action)
	}
	if entry.RequestID != "req-1" {
		t.Errorf("expected request id req-1, got %s", entry.RequestID)
	}
}

func TestAccessLog_SkipsNonAPIPaths(t *testing.T) {
	var recorded []AccessEntry
	recorder := AccessRecorderFunc(func(e AccessEntry) error {
		recorded = append(recorded, e)
		return nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := AccessLog(zerolog.New(io.Discard), recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 0 {
		t.Errorf("expected no entries for /healthz, got %d", len(recorded))
	}
}
