package audit

import (
	"net/http"

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
	g := api.Group("", auth.RequireRole(auth.Admins...))
	g.GET("/audit-events", h.ListEvents)
}

func (h *Handler) ListEvents(c echo.Context) error {
	p := pagination.FromContext(c)
	ctx := c.Request().Context()

	sess := auth.FromContext(ctx)
	if sess == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	entityType := c.QueryParam("entity_type")
	entityID := c.QueryParam("entity_id")
	if entityType != "" || entityID != "" {
		events, total, err := h.svc.ListByEntity(ctx, entityType, entityID, p.Limit, p.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(events, total, p.Limit, p.Offset))
	}

	// Default view is the caller's own organization's trail.
	events, total, err := h.svc.ListByOrg(ctx, sess.OrgID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, p.Limit, p.Offset))
}
