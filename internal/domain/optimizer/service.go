package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/internal/platform/metrics"
	"github.com/orflow/orflow/internal/platform/timeutil"
	"github.com/orflow/orflow/pkg/errs"
)

// CaseSource reads a day's schedule and commits room reassignments.
// Reassign serializes on the touched room/date keys itself.
type CaseSource interface {
	CasesOnDate(ctx context.Context, date time.Time) ([]*surgery.Case, error)
	Reassign(ctx context.Context, id uuid.UUID, roomID string) (*surgery.Case, error)
}

type Service struct {
	cases  CaseSource
	rooms  *room.Catalog
	logger zerolog.Logger

	dayEndMinutes   int // overtime threshold
	turnoverMinutes int
}

func NewService(cases CaseSource, rooms *room.Catalog, logger zerolog.Logger,
	dayEndMinutes, turnoverMinutes int) *Service {
	return &Service{cases: cases, rooms: rooms, logger: logger,
		dayEndMinutes: dayEndMinutes, turnoverMinutes: turnoverMinutes}
}

// OptimizeInput scopes one optimization run.
type OptimizeInput struct {
	TargetDate       time.Time
	Goal             Goal
	Scope            Scope
	OperatingRoomIDs []string
	Constraints      *Constraints
}

// Optimize runs one strategy over the target day and returns advisory
// proposals with before/after metrics. The schedule itself is not
// touched; see Apply.
func (s *Service) Optimize(ctx context.Context, in OptimizeInput) (*Result, error) {
	if !in.Goal.Valid() {
		return nil, errs.BadRequest("invalid optimization goal %q", in.Goal)
	}
	if in.Scope == "" {
		in.Scope = ScopeAll
	}
	if !in.Scope.Valid() {
		return nil, errs.BadRequest("invalid scope %q", in.Scope)
	}

	all, err := s.cases.CasesOnDate(ctx, in.TargetDate)
	if err != nil {
		return nil, err
	}

	candidates := make([]*surgery.Case, 0, len(all))
	for _, c := range all {
		if !c.Active() {
			continue
		}
		switch in.Scope {
		case ScopeUnscheduledOnly:
			if !c.Unscheduled() {
				continue
			}
		case ScopeSpecificRooms:
			if !c.Unscheduled() && !containsRoom(in.OperatingRoomIDs, *c.OperatingRoomID) {
				continue
			}
		}
		candidates = append(candidates, c)
	}

	original := s.scheduleMetrics(candidates)

	var changes []ScheduleChange
	var warnings []string
	// The utilization strategy simulates its assignments on a copy so
	// the projected metrics reflect the proposal.
	projected := candidates

	switch in.Goal {
	case GoalMaximizeUtilization:
		projected, changes = s.proposeUtilization(candidates)
	case GoalMinimizeOvertime:
		changes = s.proposeMinimalOvertime(candidates, in.Constraints)
	case GoalBalanceWorkload:
		changes = s.proposeBalancedWorkload(candidates)
	case GoalMinimizeTurnover:
		changes = s.proposeMinimalTurnover()
	case GoalPatientPreference:
		changes = s.proposePatientPreference(candidates)
	}

	optimized := s.scheduleMetrics(projected)

	status := "partial"
	if len(changes) > 0 {
		status = "completed"
	}

	result := &Result{
		OptimizationID:   uuid.New(),
		TargetDate:       in.TargetDate,
		Goal:             in.Goal,
		Status:           status,
		OriginalMetrics:  original,
		OptimizedMetrics: optimized,
		Improvement: Improvement{
			UtilizationChange:  optimized.TotalUtilization - original.TotalUtilization,
			OvertimeChange:     optimized.TotalOvertimeMinutes - original.TotalOvertimeMinutes,
			TurnoverTimeChange: optimized.AverageTurnoverMinutes - original.AverageTurnoverMinutes,
		},
		ProposedChanges: changes,
		Warnings:        warnings,
		ExecutedAt:      time.Now(),
	}

	metrics.IncOptimizationRun(string(in.Goal))
	s.logger.Info().
		Str("optimization_id", result.OptimizationID.String()).
		Str("goal", string(in.Goal)).
		Int("proposals", len(changes)).
		Msg("completed optimization run")
	return result, nil
}

func containsRoom(ids []string, id string) bool {
	for _, r := range ids {
		if r == id {
			return true
		}
	}
	return false
}

// scheduleMetrics scores a candidate set. Available capacity is 480
// minutes per room in use; overtime is estimated end past the day end.
func (s *Service) scheduleMetrics(cases []*surgery.Case) Metrics {
	roomsUsed := map[string]bool{}
	totalScheduled := 0
	overtime := 0
	for _, c := range cases {
		totalScheduled += c.EstimatedDuration
		if c.OperatingRoomID != nil {
			roomsUsed[*c.OperatingRoomID] = true
		}
		if c.EstimatedEndTime != nil {
			if end := timeutil.MinutesOfDay(*c.EstimatedEndTime); end > s.dayEndMinutes {
				overtime += end - s.dayEndMinutes
			}
		}
	}

	m := Metrics{
		TotalOvertimeMinutes:   overtime,
		AverageTurnoverMinutes: s.turnoverMinutes,
		CasesScheduled:         len(cases),
		RoomsUsed:              len(roomsUsed),
		FirstCaseOnTimeRate:    85,
	}
	if available := len(roomsUsed) * 480; available > 0 {
		m.TotalUtilization = math.Round(float64(totalScheduled)/float64(available)*10000) / 100
	}
	return m
}

// proposeUtilization greedily offers one unscheduled case per room. It
// works on copies; the live schedule is untouched.
func (s *Service) proposeUtilization(cases []*surgery.Case) ([]*surgery.Case, []ScheduleChange) {
	projected := make([]*surgery.Case, len(cases))
	for i, c := range cases {
		cp := *c
		projected[i] = &cp
	}

	var changes []ScheduleChange
	for _, r := range s.rooms.All() {
		for _, c := range projected {
			if !c.Unscheduled() {
				continue
			}
			changes = append(changes, ScheduleChange{
				CaseID:         c.ID.String(),
				ChangeType:     ChangeReassignRoom,
				OriginalValue:  "Unassigned",
				ProposedValue:  r.Name,
				Reason:         "Fill available OR capacity",
				Impact:         "Increases room utilization",
				ProposedRoomID: r.ID,
			})
			roomID := r.ID
			roomName := r.Name
			c.OperatingRoomID = &roomID
			c.OperatingRoomName = &roomName
			break
		}
	}
	return projected, changes
}

func (s *Service) proposeMinimalOvertime(cases []*surgery.Case, constraints *Constraints) []ScheduleChange {
	limit := s.dayEndMinutes
	if constraints != nil && constraints.MaxOvertimeMinutes != nil {
		limit += *constraints.MaxOvertimeMinutes
	}

	var changes []ScheduleChange
	for _, c := range cases {
		if c.EstimatedEndTime == nil {
			continue
		}
		if timeutil.MinutesOfDay(*c.EstimatedEndTime) > limit {
			original := ""
			if c.EstimatedStartTime != nil {
				original = c.EstimatedStartTime.Format(time.RFC3339)
			}
			changes = append(changes, ScheduleChange{
				CaseID:        c.ID.String(),
				ChangeType:    ChangeReschedule,
				OriginalValue: original,
				ProposedValue: "Earlier slot or different day",
				Reason:        "Case would extend beyond acceptable overtime",
				Impact:        "Reduces staff overtime costs",
			})
		}
	}
	return changes
}

func (s *Service) proposeBalancedWorkload(cases []*surgery.Case) []ScheduleChange {
	roomCounts := map[string]int{}
	for _, c := range cases {
		if c.OperatingRoomID != nil {
			roomCounts[*c.OperatingRoomID]++
		}
	}

	avgPerRoom := float64(len(cases)) / float64(s.rooms.Len())

	var changes []ScheduleChange
	for roomID, count := range roomCounts {
		if float64(count) > avgPerRoom*1.5 {
			changes = append(changes, ScheduleChange{
				CaseID:        "multiple",
				ChangeType:    ChangeReassignRoom,
				OriginalValue: s.rooms.NameOr(roomID),
				ProposedValue: "Redistribute to other rooms",
				Reason: fmt.Sprintf("Room has %d cases, exceeding balanced target of %d",
					count, int(math.Round(avgPerRoom))),
				Impact: "Better staff and resource distribution",
			})
		}
	}
	return changes
}

func (s *Service) proposeMinimalTurnover() []ScheduleChange {
	return []ScheduleChange{{
		CaseID:        "schedule",
		ChangeType:    ChangeReassignTime,
		OriginalValue: "Mixed procedure order",
		ProposedValue: "Group similar procedures together",
		Reason:        "Reduce equipment and setup changeover time",
		Impact:        "Estimated 15-20 minutes saved per room per day",
	}}
}

func (s *Service) proposePatientPreference(cases []*surgery.Case) []ScheduleChange {
	var changes []ScheduleChange
	for _, c := range cases {
		if c.PatientPreferences == nil || c.PatientPreferences.PreferredTime != "morning" {
			continue
		}
		if c.EstimatedStartTime != nil && c.EstimatedStartTime.Hour() >= 12 {
			changes = append(changes, ScheduleChange{
				CaseID:        c.ID.String(),
				ChangeType:    ChangeReassignTime,
				OriginalValue: c.EstimatedStartTime.Format(time.RFC3339),
				ProposedValue: "Morning slot",
				Reason:        "Patient preference for morning surgery",
				Impact:        "Improved patient satisfaction",
			})
		}
	}
	return changes
}

// AppliedChange reports the outcome of one committed proposal.
type AppliedChange struct {
	CaseID string `json:"caseId"`
	RoomID string `json:"roomId,omitempty"`
	Status string `json:"status"` // applied | skipped | failed
	Detail string `json:"detail,omitempty"`
}

// Apply commits the actionable proposals from an optimization run.
// Only room reassignments with a concrete case and room are committed;
// advisory entries are skipped. A failed change does not stop the rest.
func (s *Service) Apply(ctx context.Context, changes []ScheduleChange) ([]AppliedChange, error) {
	if len(changes) == 0 {
		return nil, errs.BadRequest("no changes to apply")
	}

	out := make([]AppliedChange, 0, len(changes))
	for _, ch := range changes {
		if ch.ChangeType != ChangeReassignRoom || ch.ProposedRoomID == "" {
			out = append(out, AppliedChange{CaseID: ch.CaseID, Status: "skipped", Detail: "advisory change"})
			continue
		}
		caseID, err := uuid.Parse(ch.CaseID)
		if err != nil {
			out = append(out, AppliedChange{CaseID: ch.CaseID, Status: "skipped", Detail: "no concrete case"})
			continue
		}
		if _, ok := s.rooms.Get(ch.ProposedRoomID); !ok {
			out = append(out, AppliedChange{CaseID: ch.CaseID, RoomID: ch.ProposedRoomID,
				Status: "failed", Detail: "unknown room"})
			continue
		}
		if _, err := s.cases.Reassign(ctx, caseID, ch.ProposedRoomID); err != nil {
			out = append(out, AppliedChange{CaseID: ch.CaseID, RoomID: ch.ProposedRoomID,
				Status: "failed", Detail: err.Error()})
			continue
		}
		out = append(out, AppliedChange{CaseID: ch.CaseID, RoomID: ch.ProposedRoomID, Status: "applied"})
	}

	s.logger.Info().Int("changes", len(out)).Msg("applied optimization changes")
	return out, nil
}
