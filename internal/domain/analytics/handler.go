package analytics

import (
	"net/http"
	"strings"
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
	api.GET("/analytics/utilization", h.Utilization)
}

func (h *Handler) Utilization(c echo.Context) error {
	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
	}

	in := UtilizationInput{
		From:    from,
		To:      to,
		GroupBy: GroupBy(c.QueryParam("groupBy")),
	}
	if s := c.QueryParam("surgeonIds"); s != "" {
		for _, part := range strings.Split(s, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid surgeon id")
			}
			in.SurgeonIDs = append(in.SurgeonIDs, id)
		}
	}
	if s := c.QueryParam("operatingRoomIds"); s != "" {
		in.OperatingRoomIDs = strings.Split(s, ",")
	}

	report, err := h.svc.Utilization(c.Request().Context(), in)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}
