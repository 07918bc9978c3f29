package navigation

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/navigation", h.GetNavigation, auth.RequireSession())
	api.GET("/routes/resolve", h.ResolveRoute)
}

type navigationResponse struct {
	Role    auth.Role  `json:"role"`
	Entries []NavEntry `json:"entries"`
}

func (h *Handler) GetNavigation(c echo.Context) error {
	s := auth.SessionFromContext(c.Request().Context())
	entries := BuildNav(s)
	if entries == nil {
		entries = []NavEntry{}
	}
	resp := navigationResponse{Entries: entries}
	if s != nil {
		resp.Role = s.User.Role
	}
	return c.JSON(http.StatusOK, resp)
}

// ResolveRoute answers for anonymous callers too; the session middleware has
// already resolved the token by the time this runs.
func (h *Handler) ResolveRoute(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	s := auth.SessionFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, Resolve(path, auth.Resolved(s)))
}
