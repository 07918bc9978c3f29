package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityConfig selects the transport-dependent headers.
type SecurityConfig struct {
	// HSTS adds Strict-Transport-Security. Leave it off for plain-HTTP
	// development servers, where browsers would pin localhost to HTTPS.
	HSTS bool
}

var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	// Dashboard and analysis payloads must never be cached.
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets response headers suited to a JSON API that serves
// patient data.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			return next(c)
		}
	}
}
