package equipment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
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
	api.GET("/equipment", h.ListEquipment)
	api.POST("/equipment/availability", h.CheckAvailability)
	api.POST("/equipment/reservations", h.ReserveForCase)
}

func (h *Handler) ListEquipment(c echo.Context) error {
	items, err := h.svc.registry.All(c.Request().Context())
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

type checkRequest struct {
	Date           string   `json:"date"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	EquipmentIDs   []string `json:"equipmentIds"`
	EquipmentTypes []string `json:"equipmentTypes"`
}

func (h *Handler) CheckAvailability(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	report, err := h.svc.CheckAvailability(c.Request().Context(), CheckInput{
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		EquipmentIDs:   req.EquipmentIDs,
		EquipmentTypes: req.EquipmentTypes,
	})
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}

type reserveRequest struct {
	CaseID    uuid.UUID `json:"caseId"`
	RoomID    string    `json:"roomId"`
	Equipment []string  `json:"equipment"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}

func (h *Handler) ReserveForCase(c echo.Context) error {
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid startTime")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid endTime")
	}
	entries, err := h.svc.ReserveForCase(c.Request().Context(), req.CaseID, req.RoomID,
		req.Equipment, start, end)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, entries)
}
