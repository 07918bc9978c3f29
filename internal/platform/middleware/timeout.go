package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type timeoutConfig struct {
	routes map[string]time.Duration
	exempt []string
}

type TimeoutOption func(*timeoutConfig)

// WithRouteTimeout gives the route pattern (as reported by c.Path, e.g.
// "/api/v1/radiologist/scans/:id/analyze") its own deadline.
func WithRouteTimeout(route string, d time.Duration) TimeoutOption {
	return func(tc *timeoutConfig) { tc.routes[route] = d }
}

// ExemptPrefix excludes every URL path under prefix from the deadline.
func ExemptPrefix(prefix string) TimeoutOption {
	return func(tc *timeoutConfig) { tc.exempt = append(tc.exempt, prefix) }
}

// RequestTimeout puts a deadline on each request's context and answers 504
// when it passes before the handler returns. Paths under /ws/ are long-lived
// and always excluded.
func RequestTimeout(timeout time.Duration, opts ...TimeoutOption) echo.MiddlewareFunc {
	tc := &timeoutConfig{routes: map[string]time.Duration{}, exempt: []string{"/ws/"}}
	for _, o := range opts {
		o(tc)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, p := range tc.exempt {
				if strings.HasPrefix(path, p) {
					return next(c)
				}
			}

			d := timeout
			if override, ok := tc.routes[c.Path()]; ok {
				d = override
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return echo.NewHTTPError(http.StatusGatewayTimeout, "request processing exceeded the allowed time limit")
				}
				return ctx.Err()
			}
		}
	}
}
