package emergency

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/internal/platform/locking"
	"github.com/orflow/orflow/internal/platform/metrics"
	"github.com/orflow/orflow/pkg/errs"
)

// CaseSource reads and mutates the day's schedule. InsertPrepared and
// Displace do not lock; this service holds the room/date keys across
// the whole insertion.
type CaseSource interface {
	CasesOnDate(ctx context.Context, date time.Time) ([]*surgery.Case, error)
	InsertPrepared(ctx context.Context, c *surgery.Case) error
	Displace(ctx context.Context, id uuid.UUID) (*surgery.Case, error)
}

// NameResolver resolves display names and gates on patient existence.
type NameResolver interface {
	SurgeonName(ctx context.Context, id uuid.UUID) (string, bool)
	PatientName(ctx context.Context, id uuid.UUID) (string, bool)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// EquipmentMatcher answers free-text equipment readiness checks.
type EquipmentMatcher interface {
	MatchRequired(ctx context.Context, required []string) (available, unavailable []string, err error)
}

type Service struct {
	cases     CaseSource
	rooms     *room.Catalog
	ids       NameResolver
	equipment EquipmentMatcher
	locks     *locking.KeyedMutex
	logger    zerolog.Logger

	turnoverMinutes int
	now             func() time.Time
}

func NewService(cases CaseSource, rooms *room.Catalog, ids NameResolver,
	equipment EquipmentMatcher, locks *locking.KeyedMutex, logger zerolog.Logger,
	turnoverMinutes int) *Service {
	return &Service{
		cases:           cases,
		rooms:           rooms,
		ids:             ids,
		equipment:       equipment,
		locks:           locks,
		logger:          logger,
		turnoverMinutes: turnoverMinutes,
		now:             time.Now,
	}
}

// InsertInput describes an incoming emergency case.
type InsertInput struct {
	PatientID         uuid.UUID
	PrimarySurgeonID  uuid.UUID
	ProcedureCode     string
	ProcedureName     string
	EstimatedDuration int
	Priority          surgery.Priority
	AnesthesiaType    string
	SpecialEquipment  []string
	PreOpDiagnosis    *string
	Notes             *string
}

// AssignedRoom is the room an emergency case landed in.
type AssignedRoom struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AvailableFrom time.Time `json:"availableFrom"`
}

// DisplacedCase records an elective case bumped by the insertion.
type DisplacedCase struct {
	CaseID       uuid.UUID `json:"caseId"`
	PatientName  string    `json:"patientName"`
	OriginalTime string    `json:"originalTime"`
	Status       string    `json:"status"` // pending_reschedule
}

// AlternativeOption is a slot the coordinator could take instead.
type AlternativeOption struct {
	Room            string    `json:"room"`
	StartTime       time.Time `json:"startTime"`
	WaitTimeMinutes int       `json:"waitTimeMinutes"`
}

// ResourceAvailability summarizes readiness at insertion time.
type ResourceAvailability struct {
	StaffAvailable     bool `json:"staffAvailable"`
	EquipmentAvailable bool `json:"equipmentAvailable"`
	RoomAvailable      bool `json:"roomAvailable"`
}

// InsertResult is the full insertion outcome. The case exists even
// when insertionSuccessful is false; it waits unassigned in pending.
type InsertResult struct {
	CaseID               uuid.UUID            `json:"caseId"`
	InsertionSuccessful  bool                 `json:"insertionSuccessful"`
	AssignedRoom         *AssignedRoom        `json:"assignedRoom,omitempty"`
	EstimatedStartTime   *time.Time           `json:"estimatedStartTime,omitempty"`
	DisplacedCases       []DisplacedCase      `json:"displacedCases"`
	ResourceAvailability ResourceAvailability `json:"resourceAvailability"`
	AlternativeOptions   []AlternativeOption  `json:"alternativeOptions"`
	Alerts               []string             `json:"alerts"`
}

// Insert places an emergency case: the emergency room immediately if it
// is free, otherwise after its last case plus turnover; if that wait
// exceeds 30 minutes and the case is emergent, the first elective case
// starting within the hour is displaced and its room taken now. The
// case is always created, pending when no room could be found.
func (s *Service) Insert(ctx context.Context, in InsertInput) (*InsertResult, error) {
	if in.Priority != surgery.PriorityUrgent && in.Priority != surgery.PriorityEmergent {
		return nil, errs.BadRequest("emergency insertion requires urgent or emergent priority, got %q", in.Priority)
	}
	if in.EstimatedDuration <= 0 {
		return nil, errs.BadRequest("estimated duration must be positive")
	}
	if !surgery.ValidAnesthesiaType(in.AnesthesiaType) {
		return nil, errs.BadRequest("invalid anesthesia type %q", in.AnesthesiaType)
	}
	exists, err := s.ids.PatientExists(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.NotFound("patient %s", in.PatientID)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Every room's day may be touched: lock them all, in key order.
	keys := make([]string, 0, s.rooms.Len())
	for _, r := range s.rooms.All() {
		keys = append(keys, surgery.RoomDateKey(r.ID, today))
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	all, err := s.cases.CasesOnDate(ctx, today)
	if err != nil {
		return nil, err
	}
	var todays []*surgery.Case
	for _, c := range all {
		if c.Active() {
			todays = append(todays, c)
		}
	}

	result := &InsertResult{
		DisplacedCases:     []DisplacedCase{},
		AlternativeOptions: []AlternativeOption{},
		Alerts:             []string{},
	}

	var assigned *AssignedRoom
	var startTime time.Time

	if er, ok := s.rooms.Emergency(); ok {
		latestEnd := time.Time{}
		busy := false
		for _, c := range todays {
			if c.OperatingRoomID == nil || *c.OperatingRoomID != er.ID {
				continue
			}
			busy = true
			if c.EstimatedEndTime != nil && c.EstimatedEndTime.After(latestEnd) {
				latestEnd = *c.EstimatedEndTime
			}
		}
		switch {
		case !busy:
			assigned = &AssignedRoom{ID: er.ID, Name: er.Name, AvailableFrom: now}
			startTime = now
		case !latestEnd.IsZero():
			at := latestEnd.Add(time.Duration(s.turnoverMinutes) * time.Minute)
			assigned = &AssignedRoom{ID: er.ID, Name: er.Name, AvailableFrom: at}
			startTime = at
		}
	}

	// Wait over 30 minutes with an emergent case justifies bumping an
	// elective case out of another room.
	longWait := assigned != nil && startTime.Sub(now) > 30*time.Minute
	if assigned == nil || (in.Priority == surgery.PriorityEmergent && longWait) {
		bumped := false
		for _, r := range s.rooms.All() {
			if r.Specialty == "emergency" {
				continue
			}
			for _, c := range todays {
				if c.OperatingRoomID == nil || *c.OperatingRoomID != r.ID {
					continue
				}
				if c.Priority != surgery.PriorityElective || c.Status != surgery.StatusScheduled || c.EstimatedStartTime == nil {
					continue
				}
				wait := int(math.Max(0, math.Round(c.EstimatedStartTime.Sub(now).Minutes())))
				result.AlternativeOptions = append(result.AlternativeOptions, AlternativeOption{
					Room:            r.Name,
					StartTime:       *c.EstimatedStartTime,
					WaitTimeMinutes: wait,
				})

				if in.Priority == surgery.PriorityEmergent && wait < 60 && !bumped {
					originalTime := c.EstimatedStartTime.Format(time.RFC3339)
					displaced, err := s.cases.Displace(ctx, c.ID)
					if err != nil {
						return nil, err
					}
					bumped = true
					assigned = &AssignedRoom{ID: r.ID, Name: r.Name, AvailableFrom: now}
					startTime = now
					result.DisplacedCases = append(result.DisplacedCases, DisplacedCase{
						CaseID:       displaced.ID,
						PatientName:  displaced.PatientName,
						OriginalTime: originalTime,
						Status:       "pending_reschedule",
					})
					result.Alerts = append(result.Alerts,
						fmt.Sprintf("Bumped elective case %s to accommodate emergent surgery", displaced.ID))
				}
			}
		}
	}
	if len(result.AlternativeOptions) > 3 {
		result.AlternativeOptions = result.AlternativeOptions[:3]
	}

	patientName, _ := s.ids.PatientName(ctx, in.PatientID)
	surgeonName, _ := s.ids.SurgeonName(ctx, in.PrimarySurgeonID)

	c := &surgery.Case{
		ID:                  uuid.New(),
		PatientID:           in.PatientID,
		PatientName:         patientName,
		PrimarySurgeonID:    in.PrimarySurgeonID,
		PrimarySurgeonName:  surgeonName,
		ProcedureCode:       in.ProcedureCode,
		ProcedureName:       in.ProcedureName,
		ScheduledDate:       today,
		EstimatedDuration:   in.EstimatedDuration,
		Priority:            in.Priority,
		Status:              surgery.StatusPending,
		AnesthesiaType:      in.AnesthesiaType,
		Laterality:          "not_applicable",
		SpecialEquipment:    in.SpecialEquipment,
		AssistingSurgeonIDs: []uuid.UUID{},
		PreOpDiagnosis:      in.PreOpDiagnosis,
		Notes:               in.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if c.SpecialEquipment == nil {
		c.SpecialEquipment = []string{}
	}
	if assigned != nil {
		c.Status = surgery.StatusScheduled
		c.OperatingRoomID = &assigned.ID
		c.OperatingRoomName = &assigned.Name
		c.EstimatedStartTime = &startTime
		end := startTime.Add(time.Duration(in.EstimatedDuration) * time.Minute)
		c.EstimatedEndTime = &end
	}

	if err := s.cases.InsertPrepared(ctx, c); err != nil {
		return nil, err
	}

	result.CaseID = c.ID
	result.InsertionSuccessful = assigned != nil
	result.AssignedRoom = assigned
	if assigned != nil {
		result.EstimatedStartTime = &startTime
	}

	_, unavailable, err := s.equipment.MatchRequired(ctx, in.SpecialEquipment)
	if err != nil {
		return nil, err
	}
	result.ResourceAvailability = ResourceAvailability{
		StaffAvailable:     true,
		EquipmentAvailable: len(unavailable) == 0,
		RoomAvailable:      assigned != nil,
	}
	if len(unavailable) > 0 {
		result.Alerts = append(result.Alerts, "Some requested equipment may not be immediately available")
	}

	outcome := "pending"
	if result.InsertionSuccessful {
		outcome = "scheduled"
	}
	metrics.IncEmergencyInsertion(outcome)
	s.logger.Info().
		Str("case_id", c.ID.String()).
		Str("patient", patientName).
		Bool("successful", result.InsertionSuccessful).
		Msg("inserted emergency case")

	return result, nil
}
