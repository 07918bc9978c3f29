package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/notify"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the identity endpoints on the root /auth group. Login
// and register are public paths; logout and session need a session.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)
	g.POST("/logout", h.Logout, auth.RequireSession())
	g.GET("/session", h.GetSession, auth.RequireSession())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

// loginView is what a client sees of a Login.
type loginView struct {
	Session *auth.SessionView `json:"session"`
	Token   string            `json:"token"`
}

func viewLogin(l *Login) *loginView {
	if l == nil {
		return nil
	}
	return &loginView{Session: l.Session.View(), Token: l.Token}
}

type loginResponse struct {
	Session      *auth.SessionView    `json:"session"`
	Token        string               `json:"token"`
	Notification *notify.Notification `json:"notification"`
}

type registerResponse struct {
	Login                *loginView           `json:"login,omitempty"`
	ConfirmationRequired bool                 `json:"confirmation_required"`
	Notification         *notify.Notification `json:"notification"`
}

func failure(status int, n *notify.Notification) *echo.HTTPError {
	return echo.NewHTTPError(status, map[string]interface{}{
		"message":      n.Description,
		"notification": n,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	login, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return failure(http.StatusUnauthorized, notify.Error("Login Failed", "Invalid email or password."))
	case err != nil:
		return failure(http.StatusServiceUnavailable, notify.Error("Login Failed", "The sign-in service is unavailable. Please try again."))
	}
	return c.JSON(http.StatusOK, loginResponse{
		Session:      login.Session.View(),
		Token:        login.Token,
		Notification: notify.Info("Login Successful", "Welcome back, "+login.Session.User.Name+"!"),
	})
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reg, err := h.svc.Register(c.Request().Context(), req.Email, req.Password, req.Name, role)
	switch {
	case errors.Is(err, ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return failure(http.StatusConflict, notify.Error("Registration Failed", "An account with this email already exists."))
	case errors.Is(err, ErrRegistrationFailed):
		return failure(http.StatusUnprocessableEntity, notify.Error("Registration Failed", "Could not create account. Please try again."))
	case err != nil:
		return failure(http.StatusServiceUnavailable, notify.Error("Registration Failed", "Could not create account. Please try again."))
	}

	n := notify.Info("Registration Successful", "Welcome to Quantum Medical, "+req.Name+"!")
	if reg.ConfirmationRequired {
		n = notify.Info("Registration Successful", "Check your email to confirm your account.")
	}
	return c.JSON(http.StatusCreated, registerResponse{
		Login:                viewLogin(reg.Login),
		ConfirmationRequired: reg.ConfirmationRequired,
		Notification:         n,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	s := auth.SessionFromContext(c.Request().Context())
	if err := h.svc.EndSession(c.Request().Context(), s.ID); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "logout failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notification": notify.Info("Logged Out", "You have been successfully logged out."),
	})
}

func (h *Handler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.SessionFromContext(c.Request().Context()).View())
}
