package cases

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orvio/clinic-portal/internal/platform/auth"
)

func request(t *testing.T, method, path string, sess *auth.Session, paramName, paramValue string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if sess != nil {
		req = req.WithContext(auth.WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	return rec, c
}

func TestDownloadHandler_Headers(t *testing.T) {
	f := newFixture(t)
	cs := f.newCase(t)
	sess := clinicSession(f.clinicOrg)
	if err := f.svc.StartSigning(context.Background(), sess, cs.ID); err != nil {
		t.Fatal(err)
	}
	docs, _ := f.docs.ListByCase(context.Background(), cs.ID)

	h := NewHandler(f.svc)
	rec, c := request(t, http.MethodGet, "/api/v1/documents/"+docs[0].ID.String()+"/download", sess, "id", docs[0].ID.String())

	if err := h.DownloadDocument(c); err != nil {
		t.Fatalf("download handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cd := rec.Header().Get(echo.HeaderContentDisposition)
	if !strings.HasPrefix(cd, "attachment; filename=") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
	ct := rec.Header().Get(echo.HeaderContentType)
	if ct != "application/pdf" && ct != docxMIME {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestGetCaseHandler_ErrorMapping(t *testing.T) {
	f := newFixture(t)
	cs := f.newCase(t)
	h := NewHandler(f.svc)

	_, c := request(t, http.MethodGet, "/api/v1/cases/"+uuid.New().String(), clinicSession(f.clinicOrg), "id", uuid.New().String())
	err := h.GetCase(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown case, got %v", err)
	}

	_, c = request(t, http.MethodGet, "/api/v1/cases/"+cs.ID.String(), clinicSession(uuid.New()), "id", cs.ID.String())
	err = h.GetCase(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign org, got %v", err)
	}

	_, c = request(t, http.MethodGet, "/api/v1/cases/"+cs.ID.String(), nil, "id", cs.ID.String())
	err = h.GetCase(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %v", err)
	}
}

func TestSignHandler(t *testing.T) {
	f := newFixture(t)
	cs := f.newCase(t)
	h := NewHandler(f.svc)

	rec, c := request(t, http.MethodPost, "/api/v1/cases/"+cs.ID.String()+"/sign", pharmacySession(f.pharmacyOrg), "id", cs.ID.String())
	if err := h.StartSigning(c); err != nil {
		t.Fatalf("sign handler failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	got, _ := f.cases.GetByID(context.Background(), cs.ID)
	if got.Status != StatusSigned {
		t.Errorf("expected SIGNED, got %s", got.Status)
	}
}
