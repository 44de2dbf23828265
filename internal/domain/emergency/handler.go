package emergency

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/pkg/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergency-cases", h.InsertEmergency)
}

type insertRequest struct {
	PatientID         uuid.UUID `json:"patientId"`
	PrimarySurgeonID  uuid.UUID `json:"primarySurgeonId"`
	ProcedureCode     string    `json:"procedureCode"`
	ProcedureName     string    `json:"procedureName"`
	EstimatedDuration int       `json:"estimatedDuration"`
	Priority          string    `json:"priority"`
	AnesthesiaType    string    `json:"anesthesiaType"`
	SpecialEquipment  []string  `json:"specialEquipment"`
	PreOpDiagnosis    *string   `json:"preOpDiagnosis"`
	Notes             *string   `json:"notes"`
}

func (h *Handler) InsertEmergency(c echo.Context) error {
	var req insertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Insert(c.Request().Context(), InsertInput{
		PatientID:         req.PatientID,
		PrimarySurgeonID:  req.PrimarySurgeonID,
		ProcedureCode:     req.ProcedureCode,
		ProcedureName:     req.ProcedureName,
		EstimatedDuration: req.EstimatedDuration,
		Priority:          surgery.Priority(req.Priority),
		AnesthesiaType:    req.AnesthesiaType,
		SpecialEquipment:  req.SpecialEquipment,
		PreOpDiagnosis:    req.PreOpDiagnosis,
		Notes:             req.Notes,
	})
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, result)
}
