package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that runs the authorization gate against the
// request's session. No session yields 401; a role outside the set yields 403
// with the home location so clients redirect instead of showing an error page.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	required := Roles(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := Resolved(SessionFromContext(c.Request().Context()))
			switch d := Authorize(state, required); d {
			case Allow:
				return next(c)
			case RedirectLogin:
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"message":  "authentication required",
					"redirect": d.Location(),
				})
			default:
				return echo.NewHTTPError(http.StatusForbidden, map[string]string{
					"message":  "required role: " + strings.Join(required.Strings(), " or "),
					"redirect": d.Location(),
				})
			}
		}
	}
}

// RequireSession allows any authenticated role.
func RequireSession() echo.MiddlewareFunc {
	return RequireRole()
}
