package optimizer

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/orflow/orflow/pkg/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/optimizations", h.RunOptimization)
	api.POST("/optimizations/apply", h.ApplyChanges)
}

type optimizeRequest struct {
	TargetDate       string       `json:"targetDate"`
	OptimizationGoal string       `json:"optimizationGoal"`
	Scope            string       `json:"scope"`
	OperatingRoomIDs []string     `json:"operatingRoomIds"`
	Constraints      *Constraints `json:"constraints"`
}

func (h *Handler) RunOptimization(c echo.Context) error {
	var req optimizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		if date, err = time.Parse(time.RFC3339, req.TargetDate); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid targetDate")
		}
	}

	result, err := h.svc.Optimize(c.Request().Context(), OptimizeInput{
		TargetDate:       date,
		Goal:             Goal(req.OptimizationGoal),
		Scope:            Scope(req.Scope),
		OperatingRoomIDs: req.OperatingRoomIDs,
		Constraints:      req.Constraints,
	})
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, result)
}

type applyRequest struct {
	Changes []ScheduleChange `json:"changes"`
}

func (h *Handler) ApplyChanges(c echo.Context) error {
	var req applyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	applied, err := h.svc.Apply(c.Request().Context(), req.Changes)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, applied)
}
