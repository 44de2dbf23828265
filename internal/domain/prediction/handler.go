package prediction

import (
	"net/http"

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
	api.POST("/predictions/duration", h.PredictDuration)
	api.GET("/predictions/cancellation/:caseId", h.PredictCancellation)
}

type durationRequest struct {
	CaseID         *uuid.UUID      `json:"caseId"`
	ProcedureCode  string          `json:"procedureCode"`
	SurgeonID      uuid.UUID       `json:"surgeonId"`
	AnesthesiaType string          `json:"anesthesiaType"`
	PatientFactors *PatientFactors `json:"patientFactors"`
}

func (h *Handler) PredictDuration(c echo.Context) error {
	var req durationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.PredictDuration(c.Request().Context(), DurationRequest{
		CaseID:         req.CaseID,
		ProcedureCode:  req.ProcedureCode,
		SurgeonID:      req.SurgeonID,
		AnesthesiaType: req.AnesthesiaType,
		Patient:        req.PatientFactors,
	})
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) PredictCancellation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	out, err := h.svc.PredictCancellation(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}
