package cases

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orvio/clinic-portal/internal/platform/auth"
	"github.com/orvio/clinic-portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.AllStaff...))
	g.POST("/cases", h.CreateCase)
	g.GET("/cases", h.ListCases)
	g.GET("/cases/:id", h.GetCase)
	g.POST("/cases/:id/sign", h.StartSigning)
	g.POST("/cases/:id/fax", h.MarkFaxed)
	g.GET("/patients/:id/cases", h.ListCasesByPatient)
	g.GET("/documents/:id/download", h.DownloadDocument)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, ErrForbidden.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) session(c echo.Context) (*auth.Session, error) {
	sess := auth.FromContext(c.Request().Context())
	if sess == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return sess, nil
}

func (h *Handler) CreateCase(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var body Case
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCase(c.Request().Context(), sess, &body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, body)
}

func (h *Handler) ListCases(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	list, total, err := h.svc.ListCases(c.Request().Context(), sess, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(list, total, p.Limit, p.Offset))
}

func (h *Handler) GetCase(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.GetCase(c.Request().Context(), sess, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) StartSigning(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.StartSigning(c.Request().Context(), sess, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) MarkFaxed(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.MarkFaxed(c.Request().Context(), sess, id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) ListCasesByPatient(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	list, err := h.svc.ListCasesByPatient(c.Request().Context(), sess, patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) DownloadDocument(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	dl, err := h.svc.DownloadDocument(c.Request().Context(), sess, id)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, dl.Filename))
	return c.Blob(http.StatusOK, dl.ContentType, dl.Bytes)
}
