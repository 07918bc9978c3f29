package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that never need a session: health checks and
// the login/registration endpoints themselves.
var publicPaths = map[string]bool{
	"/health":        true,
	"/health/db":     true,
	"/auth/login":    true,
	"/auth/register": true,
}

// AuthSkipper returns true for requests whose path should skip session
// resolution.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses session resolution.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
