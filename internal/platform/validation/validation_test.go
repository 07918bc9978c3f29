package validation

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func TestValidate_OK(t *testing.T) {
	if err := New().Validate(&loginForm{Email: "a@b.io", Password: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ReportsFields(t *testing.T) {
	err := New().Validate(&loginForm{Email: "nope"})
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	msg, _ := httpErr.Message.(string)
	if !strings.Contains(msg, "email: email") || !strings.Contains(msg, "password: required") {
		t.Errorf("unexpected message %q", msg)
	}
}
