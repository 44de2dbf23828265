package surgery

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
	api.POST("/surgical-cases", h.CreateCase)
	api.GET("/surgical-cases", h.ListCases)
	api.GET("/surgical-cases/:id", h.GetCase)
	api.PATCH("/surgical-cases/:id", h.UpdateCase)
}

// parseDate accepts a bare date or a full RFC 3339 timestamp; either
// way only the calendar day is kept.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errs.BadRequest("invalid date %q", s)
	}
	return midnight(t), nil
}

type createCaseRequest struct {
	PatientID           uuid.UUID          `json:"patientId"`
	PrimarySurgeonID    uuid.UUID          `json:"primarySurgeonId"`
	ProcedureCode       string             `json:"procedureCode"`
	ProcedureName       string             `json:"procedureName"`
	ScheduledDate       string             `json:"scheduledDate"`
	EstimatedDuration   int                `json:"estimatedDuration"`
	Priority            string             `json:"priority"`
	AnesthesiaType      string             `json:"anesthesiaType"`
	PreOpDiagnosis      *string            `json:"preOpDiagnosis"`
	SpecialEquipment    []string           `json:"specialEquipment"`
	StaffRequirements   *StaffRequirements `json:"staffRequirements"`
	AssistingSurgeonIDs []uuid.UUID        `json:"assistingSurgeonIds"`
	OperatingRoomID     *string            `json:"operatingRoomId"`
	BlockID             *uuid.UUID         `json:"blockId"`
	Laterality          string             `json:"laterality"`
	Notes               *string            `json:"notes"`
	PatientPreferences  *Preferences       `json:"patientPreferences"`
}

func (h *Handler) CreateCase(c echo.Context) error {
	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		return errs.ToHTTP(err)
	}

	out, err := h.svc.ScheduleCase(c.Request().Context(), ScheduleCaseInput{
		PatientID:           req.PatientID,
		PrimarySurgeonID:    req.PrimarySurgeonID,
		ProcedureCode:       req.ProcedureCode,
		ProcedureName:       req.ProcedureName,
		ScheduledDate:       date,
		EstimatedDuration:   req.EstimatedDuration,
		Priority:            Priority(req.Priority),
		AnesthesiaType:      req.AnesthesiaType,
		PreOpDiagnosis:      req.PreOpDiagnosis,
		SpecialEquipment:    req.SpecialEquipment,
		StaffRequirements:   req.StaffRequirements,
		AssistingSurgeonIDs: req.AssistingSurgeonIDs,
		OperatingRoomID:     req.OperatingRoomID,
		BlockID:             req.BlockID,
		Laterality:          req.Laterality,
		Notes:               req.Notes,
		PatientPreferences:  req.PatientPreferences,
	})
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	out, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListCases(c echo.Context) error {
	var f CaseFilters
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
	f.RoomID = c.QueryParam("operatingRoomId")
	if s := c.QueryParam("surgeonId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid surgeonId")
		}
		f.SurgeonID = id
	}
	if s := c.QueryParam("patientId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
		}
		f.PatientID = id
	}
	if s := c.QueryParam("status"); s != "" {
		st := Status(s)
		if !st.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = st
	}

	items, err := h.svc.ListCases(c.Request().Context(), f)
	if err != nil {
		return errs.ToHTTP(err)
	}

	p := pagination.FromContext(c)
	lo, hi := p.Slice(len(items))
	return c.JSON(http.StatusOK, pagination.NewResponse(items[lo:hi], len(items), p))
}

type updateCaseRequest struct {
	ScheduledDate     *string `json:"scheduledDate"`
	EstimatedDuration *int    `json:"estimatedDuration"`
	Priority          *string `json:"priority"`
	OperatingRoomID   *string `json:"operatingRoomId"`
	Status            *string `json:"status"`
	Notes             *string `json:"notes"`
	ActualStartTime   *string `json:"actualStartTime"`
	ActualEndTime     *string `json:"actualEndTime"`
}

func (h *Handler) UpdateCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var in UpdateCaseInput
	if req.ScheduledDate != nil {
		d, err := parseDate(*req.ScheduledDate)
		if err != nil {
			return errs.ToHTTP(err)
		}
		in.ScheduledDate = &d
	}
	in.EstimatedDuration = req.EstimatedDuration
	if req.Priority != nil {
		p := Priority(*req.Priority)
		in.Priority = &p
	}
	in.OperatingRoomID = req.OperatingRoomID
	if req.Status != nil {
		s := Status(*req.Status)
		in.Status = &s
	}
	in.Notes = req.Notes
	if req.ActualStartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.ActualStartTime)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actualStartTime")
		}
		in.ActualStartTime = &t
	}
	if req.ActualEndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.ActualEndTime)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actualEndTime")
		}
		in.ActualEndTime = &t
	}

	out, err := h.svc.UpdateCase(c.Request().Context(), id, in)
	if err != nil {
		return errs.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}
