package surgery

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/platform/locking"
	"github.com/orflow/orflow/internal/platform/metrics"
	"github.com/orflow/orflow/internal/platform/timeutil"
	"github.com/orflow/orflow/pkg/errs"
)

// NameResolver is the identity collaborator contract. Name lookups
// degrade to placeholders; only the existence check can fail.
type NameResolver interface {
	SurgeonName(ctx context.Context, id uuid.UUID) (string, bool)
	PatientName(ctx context.Context, id uuid.UUID) (string, bool)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// RoomDateKey is the serialization key for schedule writes touching one
// room on one date.
func RoomDateKey(roomID string, date time.Time) string {
	return roomID + "|" + date.Format("2006-01-02")
}

type Service struct {
	cases   CaseRepository
	history HistoryRepository
	rooms   *room.Catalog
	ids     NameResolver
	locks   *locking.KeyedMutex
	logger  zerolog.Logger

	dayStartMinutes int
	turnoverMinutes int
}

func NewService(cases CaseRepository, history HistoryRepository, rooms *room.Catalog,
	ids NameResolver, locks *locking.KeyedMutex, logger zerolog.Logger,
	dayStartMinutes, turnoverMinutes int) *Service {
	return &Service{
		cases:           cases,
		history:         history,
		rooms:           rooms,
		ids:             ids,
		locks:           locks,
		logger:          logger,
		dayStartMinutes: dayStartMinutes,
		turnoverMinutes: turnoverMinutes,
	}
}

// ScheduleCaseInput carries everything needed to create a case.
type ScheduleCaseInput struct {
	PatientID           uuid.UUID
	PrimarySurgeonID    uuid.UUID
	ProcedureCode       string
	ProcedureName       string
	ScheduledDate       time.Time
	EstimatedDuration   int
	Priority            Priority
	AnesthesiaType      string
	PreOpDiagnosis      *string
	SpecialEquipment    []string
	StaffRequirements   *StaffRequirements
	AssistingSurgeonIDs []uuid.UUID
	OperatingRoomID     *string
	BlockID             *uuid.UUID
	Laterality          string
	Notes               *string
	PatientPreferences  *Preferences
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ScheduleCase creates a case and, when a room is given, places it in
// the room's day. Placement is greedy and append-only: the new case
// starts after the latest existing case's end plus the turnover buffer,
// never moving prior commitments.
func (s *Service) ScheduleCase(ctx context.Context, in ScheduleCaseInput) (*Case, error) {
	if in.ProcedureCode == "" || in.ProcedureName == "" {
		return nil, errs.BadRequest("procedure code and name are required")
	}
	if in.EstimatedDuration <= 0 {
		return nil, errs.BadRequest("estimated duration must be positive")
	}
	if !in.Priority.Valid() {
		return nil, errs.BadRequest("invalid priority %q", in.Priority)
	}
	if !ValidAnesthesiaType(in.AnesthesiaType) {
		return nil, errs.BadRequest("invalid anesthesia type %q", in.AnesthesiaType)
	}
	if in.Laterality == "" {
		in.Laterality = "not_applicable"
	}
	if !ValidLaterality(in.Laterality) {
		return nil, errs.BadRequest("invalid laterality %q", in.Laterality)
	}

	exists, err := s.ids.PatientExists(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.NotFound("patient %s", in.PatientID)
	}

	patientName, _ := s.ids.PatientName(ctx, in.PatientID)
	surgeonName, _ := s.ids.SurgeonName(ctx, in.PrimarySurgeonID)

	date := midnight(in.ScheduledDate)
	now := time.Now()

	c := &Case{
		ID:                  uuid.New(),
		PatientID:           in.PatientID,
		PatientName:         patientName,
		PrimarySurgeonID:    in.PrimarySurgeonID,
		PrimarySurgeonName:  surgeonName,
		ProcedureCode:       in.ProcedureCode,
		ProcedureName:       in.ProcedureName,
		ScheduledDate:       date,
		EstimatedDuration:   in.EstimatedDuration,
		Priority:            in.Priority,
		Status:              StatusScheduled,
		AnesthesiaType:      in.AnesthesiaType,
		BlockID:             in.BlockID,
		Laterality:          in.Laterality,
		SpecialEquipment:    in.SpecialEquipment,
		StaffRequirements:   in.StaffRequirements,
		AssistingSurgeonIDs: in.AssistingSurgeonIDs,
		PreOpDiagnosis:      in.PreOpDiagnosis,
		Notes:               in.Notes,
		PatientPreferences:  in.PatientPreferences,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if c.SpecialEquipment == nil {
		c.SpecialEquipment = []string{}
	}
	if c.AssistingSurgeonIDs == nil {
		c.AssistingSurgeonIDs = []uuid.UUID{}
	}

	if in.OperatingRoomID != nil {
		roomID := *in.OperatingRoomID
		unlock := s.locks.Lock(RoomDateKey(roomID, date))
		defer unlock()

		start, err := s.nextSlot(ctx, roomID, date)
		if err != nil {
			return nil, err
		}
		startAt := timeutil.AtMinutes(date, start)
		endAt := startAt.Add(time.Duration(in.EstimatedDuration) * time.Minute)
		name := s.rooms.NameOr(roomID)

		c.OperatingRoomID = &roomID
		c.OperatingRoomName = &name
		c.EstimatedStartTime = &startAt
		c.EstimatedEndTime = &endAt
	}

	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}

	metrics.IncCaseScheduled(string(c.Priority))
	s.logger.Info().
		Str("case_id", c.ID.String()).
		Str("patient", c.PatientName).
		Str("surgeon", c.PrimarySurgeonName).
		Msg("scheduled surgical case")

	return c, nil
}

// nextSlot computes the first available start (minutes of day) in a
// room: after every active case's end plus turnover, never before the
// scheduling day opens.
func (s *Service) nextSlot(ctx context.Context, roomID string, date time.Time) (int, error) {
	existing, err := s.cases.List(ctx, CaseFilters{RoomID: roomID, Date: &date})
	if err != nil {
		return 0, err
	}

	start := s.dayStartMinutes
	for _, c := range existing {
		if c.Status == StatusCancelled || c.EstimatedEndTime == nil {
			continue
		}
		end := timeutil.MinutesOfDay(*c.EstimatedEndTime)
		if end+s.turnoverMinutes > start {
			start = end + s.turnoverMinutes
		}
	}
	return start, nil
}

// InsertPrepared persists a case whose placement the caller already
// computed, as emergency insertion does. The caller holds the room/date
// locks.
func (s *Service) InsertPrepared(ctx context.Context, c *Case) error {
	if err := s.cases.Create(ctx, c); err != nil {
		return err
	}
	metrics.IncCaseScheduled(string(c.Priority))
	return nil
}

// UpdateCaseInput is a partial patch; nil fields are left unchanged.
type UpdateCaseInput struct {
	ScheduledDate     *time.Time
	EstimatedDuration *int
	Priority          *Priority
	OperatingRoomID   *string
	Status            *Status
	Notes             *string
	ActualStartTime   *time.Time
	ActualEndTime     *time.Time
}

// UpdateCase applies a field patch. Setting both actual times derives
// the actual duration and folds it into the historical index; the
// record is keyed by case id, so repeating the update corrects the
// sample rather than duplicating it.
func (s *Service) UpdateCase(ctx context.Context, id uuid.UUID, in UpdateCaseInput) (*Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.ScheduledDate != nil {
		c.ScheduledDate = midnight(*in.ScheduledDate)
	}
	if in.EstimatedDuration != nil {
		if *in.EstimatedDuration <= 0 {
			return nil, errs.BadRequest("estimated duration must be positive")
		}
		c.EstimatedDuration = *in.EstimatedDuration
		if c.EstimatedStartTime != nil {
			end := c.EstimatedStartTime.Add(time.Duration(c.EstimatedDuration) * time.Minute)
			c.EstimatedEndTime = &end
		}
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, errs.BadRequest("invalid priority %q", *in.Priority)
		}
		c.Priority = *in.Priority
	}
	if in.OperatingRoomID != nil {
		roomID := *in.OperatingRoomID
		name := s.rooms.NameOr(roomID)
		c.OperatingRoomID = &roomID
		c.OperatingRoomName = &name
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, errs.BadRequest("invalid status %q", *in.Status)
		}
		if !c.Status.CanTransition(*in.Status) {
			return nil, errs.BadRequest("illegal status transition %s -> %s", c.Status, *in.Status)
		}
		c.Status = *in.Status
	}
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	if in.ActualStartTime != nil {
		c.ActualStartTime = in.ActualStartTime
	}
	if in.ActualEndTime != nil {
		c.ActualEndTime = in.ActualEndTime
	}

	if c.ActualStartTime != nil && c.ActualEndTime != nil &&
		(in.ActualStartTime != nil || in.ActualEndTime != nil) {
		d := int(math.Round(c.ActualEndTime.Sub(*c.ActualStartTime).Minutes()))
		if d < 0 {
			return nil, errs.BadRequest("actual end time precedes actual start time")
		}
		c.ActualDuration = &d
		if err := s.history.RecordDuration(ctx, c.ID, c.ProcedureCode, c.PrimarySurgeonID, d); err != nil {
			return nil, err
		}
	}

	c.UpdatedAt = time.Now()
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Str("case_id", c.ID.String()).Msg("updated surgical case")
	return c, nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) ListCases(ctx context.Context, f CaseFilters) ([]*Case, error) {
	return s.cases.List(ctx, f)
}

// CasesOnDate returns every case scheduled for the given date.
func (s *Service) CasesOnDate(ctx context.Context, date time.Time) ([]*Case, error) {
	d := midnight(date)
	return s.cases.List(ctx, CaseFilters{Date: &d})
}

// CasesInRoom returns the cases assigned to a room on a date.
func (s *Service) CasesInRoom(ctx context.Context, roomID string, date time.Time) ([]*Case, error) {
	d := midnight(date)
	return s.cases.List(ctx, CaseFilters{RoomID: roomID, Date: &d})
}

// Reassign moves a case to a room without touching its time slot. The
// optimizer's apply step goes through here so room/date serialization
// holds.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, roomID string) (*Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := []string{RoomDateKey(roomID, c.ScheduledDate)}
	if c.OperatingRoomID != nil {
		keys = append(keys, RoomDateKey(*c.OperatingRoomID, c.ScheduledDate))
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	name := s.rooms.NameOr(roomID)
	c.OperatingRoomID = &roomID
	c.OperatingRoomName = &name
	c.UpdatedAt = time.Now()
	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Displace clears a case's room and time assignment and marks it
// postponed, freeing its slot for a higher-priority case. The caller
// is expected to hold the room/date lock.
func (s *Service) Displace(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransition(StatusPostponed) {
		return nil, errs.Conflict("case %s cannot be displaced from status %s", id, c.Status)
	}

	c.OperatingRoomID = nil
	c.OperatingRoomName = nil
	c.EstimatedStartTime = nil
	c.EstimatedEndTime = nil
	c.Status = StatusPostponed
	c.UpdatedAt = time.Now()

	if err := s.cases.Update(ctx, c); err != nil {
		return nil, err
	}
	metrics.IncCaseDisplaced()
	return c, nil
}

// NoShowRate returns the patient's historical cancellation fraction, 0
// with no history.
func (s *Service) NoShowRate(ctx context.Context, patientID uuid.UUID) (float64, error) {
	cancelled, total, err := s.cases.PatientCaseCounts(ctx, patientID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(cancelled) / float64(total), nil
}
