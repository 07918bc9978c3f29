package scananalysis

import (
	"errors"
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/radiologist/scans", auth.RequireRole(auth.RoleRadiologist))
	g.POST("/:id/analyze", h.Analyze)
	g.GET("/:id/analysis", h.GetAnalysis)
}

type analysisResponse struct {
	Success bool `json:"success"`
	*Analysis
	Notification *notify.Notification `json:"notification"`
}

func (h *Handler) Analyze(c echo.Context) error {
	force, _ := strconv.ParseBool(c.QueryParam("force"))
	a, err := h.svc.Analyze(c.Request().Context(), c.Param("id"), Options{Force: force})
	if err != nil {
		return analysisError(err)
	}
	n := notify.Info("Analysis Complete", "The MRI scan has been successfully analyzed")
	if a.Existing {
		n = notify.Info("Analysis Available", "This scan has already been analyzed. Viewing existing analysis.")
	}
	return c.JSON(http.StatusOK, analysisResponse{Success: true, Analysis: a, Notification: n})
}

func (h *Handler) GetAnalysis(c echo.Context) error {
	a, err := h.svc.Latest(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNoResult) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, analysisResponse{Success: true, Analysis: a})
}

func analysisError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrConfiguration):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ErrScanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrImageUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrOracle):
		status = http.StatusBadGateway
	}
	return echo.NewHTTPError(status, map[string]interface{}{
		"message":      err.Error(),
		"notification": notify.Error("Analysis Failed", err.Error()),
	})
}
