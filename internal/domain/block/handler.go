package block

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orflow/orflow/pkg/errs"
	"github.com/orflow/orflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/or-blocks", h.CreateBlock)
	api.GET("/or-blocks", h.ListBlocks)
	api.GET("/or-blocks/:id", h.GetBlock)
	api.GET("/or-blocks/:id/utilization", h.BlockUtilization)
}

type createBlockRequest struct {
	OperatingRoomID string     `json:"operatingRoomId"`
	SurgeonID       *uuid.UUID `json:"surgeonId"`
	Specialty       *string    `json:"specialty"`
	Date            string     `json:"date"`
	StartTime       string     `json:"startTime"`
	EndTime         string     `json:"endTime"`
	BlockType       string     `json:"blockType"`
	Recurrence      string     `json:"recurrence"`
	Notes           *string    `json:"notes"`
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errs.BadRequest("invalid date %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
}

func (h *Handler) CreateBlock(c echo.Context) error {
	var req createBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return errs.ToHTTP(err)
	}

	b, err := h.svc.CreateBlock(c.Request().Context(), CreateBlockInput{
		OperatingRoomID: req.OperatingRoomID,
		SurgeonID:       req.SurgeonID,
		Specialty:       req.Specialty,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		BlockType:       BlockType(req.BlockType),
		Recurrence:      Recurrence(req.Recurrence),
		Notes:           req.Notes,
	})
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBlock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBlock(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBlocks(c echo.Context) error {
	var f Filters
	f.RoomID = c.QueryParam("operatingRoomId")
	f.Specialty = c.QueryParam("specialty")
	if s := c.QueryParam("surgeonId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid surgeonId")
		}
		f.SurgeonID = id
	}
	if s := c.QueryParam("blockType"); s != "" {
		t := BlockType(s)
		if !t.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid blockType")
		}
		f.BlockType = t
	}
	if s := c.QueryParam("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return errs.ToHTTP(err)
		}
		f.Date = &d
	}
	if s := c.QueryParam("from"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return errs.ToHTTP(err)
		}
		f.From = &d
	}
	if s := c.QueryParam("to"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return errs.ToHTTP(err)
		}
		f.To = &d
	}

	items, err := h.svc.ListBlocks(c.Request().Context(), f)
	if err != nil {
		return errs.ToHTTP(err)
	}

	p := pagination.FromContext(c)
	lo, hi := p.Slice(len(items))
	return c.JSON(http.StatusOK, pagination.NewResponse(items[lo:hi], len(items), p))
}

func (h *Handler) BlockUtilization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.BlockUtilization(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, u)
}
