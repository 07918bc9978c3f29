package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	SessionKey contextKey = "session"
	TokenKey   contextKey = "session_token"
)

// SessionLoader resolves a session ID carried by a token into the live
// session. It returns nil without error when the session no longer exists.
type SessionLoader interface {
	ResolveSession(ctx context.Context, sessionID string) (*Session, error)
}

type SessionConfig struct {
	Issuer  *TokenIssuer
	Loader  SessionLoader
	Skipper func(c echo.Context) bool
}

// SessionMiddleware attaches the caller's session to the request context.
// Requests without a token pass through unauthenticated; RequireRole decides
// what they may reach.
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := extractToken(c)
			if err != nil {
				return err
			}
			if tokenStr == "" {
				return next(c)
			}

			claims, err := cfg.Issuer.Verify(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			session, err := cfg.Loader.ResolveSession(ctx, claims.ID)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session lookup failed")
			}
			if session == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}

			ctx = WithSession(ctx, session)
			ctx = context.WithValue(ctx, TokenKey, tokenStr)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func extractToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		// Browsers cannot set headers on a WebSocket handshake.
		if strings.HasPrefix(c.Request().URL.Path, "/ws/") {
			return c.QueryParam("access_token"), nil
		}
		return "", nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFromContext returns the session attached by SessionMiddleware, or
// nil for anonymous requests.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(SessionKey).(*Session)
	return s
}

func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(TokenKey).(string)
	return t
}

func UserIDFromContext(ctx context.Context) string {
	if s := SessionFromContext(ctx); s != nil {
		return s.User.ID
	}
	return ""
}
