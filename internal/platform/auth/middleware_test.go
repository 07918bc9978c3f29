package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

const testSigningKey = "test-secret-key-for-unit-tests-only"

type mockLoader struct {
	sessions map[string]*Session
	err      error
}

func (m *mockLoader) ResolveSession(_ context.Context, id string) (*Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sessions[id], nil
}

func newTestSession() *Session {
	now := time.Now()
	return &Session{
		ID:        "sess-1",
		User:      User{ID: "2", Email: "doctor@quantum.med", Name: "Dr. Sarah Johnson", Role: RoleDoctor},
		Source:    SourceDemo,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func runMiddleware(t *testing.T, loader SessionLoader, path, header string) (*Session, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Session
	handler := func(c echo.Context) error {
		seen = SessionFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}

	mw := SessionMiddleware(SessionConfig{Issuer: NewTokenIssuer(testSigningKey), Loader: loader})
	err := mw(handler)(c)
	return seen, err
}

func TestSessionMiddleware_NoHeaderPassesAnonymous(t *testing.T) {
	seen, err := runMiddleware(t, &mockLoader{}, "/api/v1/navigation", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != nil {
		t.Error("expected no session")
	}
}

func TestSessionMiddleware_ValidToken(t *testing.T) {
	s := newTestSession()
	token, err := NewTokenIssuer(testSigningKey).Issue(s)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	seen, err := runMiddleware(t, &mockLoader{sessions: map[string]*Session{s.ID: s}}, "/", "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.User.Role != RoleDoctor {
		t.Errorf("expected doctor session, got %+v", seen)
	}
}

func TestSessionMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, &mockLoader{}, "/", tt.header)
			assertHTTPStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestSessionMiddleware_BadSignature(t *testing.T) {
	token, _ := NewTokenIssuer("some-other-signing-key-000000").Issue(newTestSession())
	_, err := runMiddleware(t, &mockLoader{}, "/", "Bearer "+token)
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_EndedSession(t *testing.T) {
	token, _ := NewTokenIssuer(testSigningKey).Issue(newTestSession())
	_, err := runMiddleware(t, &mockLoader{sessions: map[string]*Session{}}, "/", "Bearer "+token)
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestSessionMiddleware_LoaderFailure(t *testing.T) {
	token, _ := NewTokenIssuer(testSigningKey).Issue(newTestSession())
	_, err := runMiddleware(t, &mockLoader{err: errors.New("redis down")}, "/", "Bearer "+token)
	assertHTTPStatus(t, err, http.StatusServiceUnavailable)
}

func TestSessionMiddleware_WebSocketQueryToken(t *testing.T) {
	s := newTestSession()
	token, _ := NewTokenIssuer(testSigningKey).Issue(s)

	seen, err := runMiddleware(t, &mockLoader{sessions: map[string]*Session{s.ID: s}}, "/ws/dashboard?access_token="+token, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil {
		t.Fatal("expected session from query token")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	s := newTestSession()
	s.IssuedAt = time.Now().Add(-2 * time.Hour)
	s.ExpiresAt = time.Now().Add(-time.Hour)

	issuer := NewTokenIssuer(testSigningKey)
	token, err := issuer.Issue(s)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey)
	token, err := issuer.Issue(newTestSession())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ID != "sess-1" || claims.Subject != "2" || claims.Role != "doctor" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func assertHTTPStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d error, got nil", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}
