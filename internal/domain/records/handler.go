package records

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/notify"
	"github.com/Fransi777/quanta-medix-nexus/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reception := api.Group("/receptionist", auth.RequireRole(auth.RoleReceptionist))
	reception.POST("/patients", h.RegisterPatient)
	reception.GET("/patients", h.ListPatients)

	radiology := api.Group("/radiologist", auth.RequireRole(auth.RoleRadiologist))
	radiology.POST("/scans", h.UploadScan)
	radiology.GET("/scans", h.ListScans)

	messages := api.Group("/messages", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleSpecialist, auth.RoleRadiologist))
	messages.GET("", h.ListMessages)
}

type registrationResponse struct {
	Patient      *Patient             `json:"patient"`
	Notification *notify.Notification `json:"notification"`
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in RegistrationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	p, err := h.svc.RegisterPatient(c.Request().Context(), &in, auth.UserIDFromContext(c.Request().Context()))
	if errors.Is(err, ErrValidation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	return c.JSON(http.StatusCreated, registrationResponse{
		Patient:      p,
		Notification: notify.Info("Registration Successful", "Patient has been registered successfully"),
	})
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UploadScan(c echo.Context) error {
	in := UploadInput{
		PatientID: c.FormValue("patient_id"),
		ScanType:  c.FormValue("scan_type"),
		ScanDate:  c.FormValue("scan_date"),
		Notes:     c.FormValue("notes"),
	}
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is required")
	}
	in.FileName = file.Filename
	in.ContentType = file.Header.Get(echo.HeaderContentType)
	in.RadiologistID = auth.UserIDFromContext(c.Request().Context())
	if err := c.Validate(&in); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable image")
	}
	defer src.Close()

	scan, err := h.svc.UploadScan(c.Request().Context(), in, src)
	if errors.Is(err, ErrValidation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "upload failed")
	}
	return c.JSON(http.StatusCreated, scan)
}

func (h *Handler) ListScans(c echo.Context) error {
	pg := pagination.FromContext(c)
	listing, err := h.svc.ListScans(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, listing)
}

// ListMessages answers with an empty page until messaging exists.
func (h *Handler) ListMessages(c echo.Context) error {
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse([]Message{}, 0, pg.Limit, pg.Offset))
}
