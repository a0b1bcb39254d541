package admin

import (
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
	read := api.Group("", auth.RequireRole(auth.AllStaff...))
	read.GET("/organizations", h.ListOrganizations)
	read.GET("/organizations/:id", h.GetOrganization)

	write := api.Group("", auth.RequireRole(auth.Admins...))
	write.POST("/organizations", h.CreateOrganization)
	write.PUT("/organizations/:id", h.UpdateOrganization)
}

func (h *Handler) CreateOrganization(c echo.Context) error {
	var org Organization
	if err := c.Bind(&org); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateOrganization(c.Request().Context(), &org); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, org)
}

func (h *Handler) GetOrganization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	org, err := h.svc.GetOrganization(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "organization not found")
	}
	return c.JSON(http.StatusOK, org)
}

func (h *Handler) UpdateOrganization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var org Organization
	if err := c.Bind(&org); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	org.ID = id
	if err := h.svc.UpdateOrganization(c.Request().Context(), &org); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, org)
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	p := pagination.FromContext(c)
	orgs, total, err := h.svc.ListOrganizations(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orgs, total, p.Limit, p.Offset))
}
