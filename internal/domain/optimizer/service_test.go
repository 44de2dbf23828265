package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/pkg/errs"
)

type stubCases struct {
	cases      []*surgery.Case
	reassigned map[uuid.UUID]string
}

func (s *stubCases) CasesOnDate(_ context.Context, _ time.Time) ([]*surgery.Case, error) {
	return s.cases, nil
}

func (s *stubCases) Reassign(_ context.Context, id uuid.UUID, roomID string) (*surgery.Case, error) {
	for _, c := range s.cases {
		if c.ID == id {
			if s.reassigned == nil {
				s.reassigned = map[uuid.UUID]string{}
			}
			s.reassigned[id] = roomID
			c.OperatingRoomID = &roomID
			return c, nil
		}
	}
	return nil, errs.NotFound("surgical case %s", id)
}

func newTestService(cases *stubCases) *Service {
	return NewService(cases, room.DefaultCatalog(), zerolog.Nop(), 17*60, 30)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scheduledCase(roomID string, startMin, durMin int) *surgery.Case {
	d := day(2026, time.June, 1)
	start := d.Add(time.Duration(startMin) * time.Minute)
	end := start.Add(time.Duration(durMin) * time.Minute)
	return &surgery.Case{
		ID:                 uuid.New(),
		ScheduledDate:      d,
		OperatingRoomID:    &roomID,
		EstimatedStartTime: &start,
		EstimatedEndTime:   &end,
		EstimatedDuration:  durMin,
		Status:             surgery.StatusScheduled,
		Priority:           surgery.PriorityElective,
	}
}

func unscheduledCase(durMin int) *surgery.Case {
	return &surgery.Case{
		ID:                uuid.New(),
		ScheduledDate:     day(2026, time.June, 1),
		EstimatedDuration: durMin,
		Status:            surgery.StatusScheduled,
		Priority:          surgery.PriorityElective,
	}
}

func TestOptimizeUtilizationIsAdvisory(t *testing.T) {
	un := unscheduledCase(90)
	src := &stubCases{cases: []*surgery.Case{un, scheduledCase("or-002", 7*60, 90)}}
	svc := newTestService(src)

	result, err := svc.Optimize(context.Background(), OptimizeInput{
		TargetDate: day(2026, time.June, 1),
		Goal:       GoalMaximizeUtilization,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.ProposedChanges) != 1 {
		t.Fatalf("proposals = %d, want 1", len(result.ProposedChanges))
	}
	ch := result.ProposedChanges[0]
	if ch.CaseID != un.ID.String() || ch.ChangeType != ChangeReassignRoom {
		t.Fatalf("unexpected change %+v", ch)
	}
	if ch.ProposedRoomID == "" {
		t.Error("room proposal must carry a concrete room id for Apply")
	}
	// The live case must not have been mutated.
	if un.OperatingRoomID != nil {
		t.Error("optimization run must not commit room assignments")
	}
	if result.Status != "completed" {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if result.OptimizedMetrics.RoomsUsed != 2 {
		t.Errorf("projected rooms used = %d, want 2 after simulated assignment", result.OptimizedMetrics.RoomsUsed)
	}
}

func TestOptimizeScopeUnscheduledOnly(t *testing.T) {
	src := &stubCases{cases: []*surgery.Case{
		unscheduledCase(60),
		scheduledCase("or-001", 7*60, 600), // would be flagged for overtime if in scope
	}}
	svc := newTestService(src)

	result, err := svc.Optimize(context.Background(), OptimizeInput{
		TargetDate: day(2026, time.June, 1),
		Goal:       GoalMinimizeOvertime,
		Scope:      ScopeUnscheduledOnly,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.ProposedChanges) != 0 {
		t.Errorf("proposals = %d, want 0 (scheduled case out of scope)", len(result.ProposedChanges))
	}
	if result.Status != "partial" {
		t.Errorf("status = %s, want partial with no proposals", result.Status)
	}
}

func TestOptimizeMinimizeOvertime(t *testing.T) {
	late := scheduledCase("or-001", 15*60, 180) // ends 18:00
	onTime := scheduledCase("or-002", 8*60, 120)
	src := &stubCases{cases: []*surgery.Case{late, onTime}}
	svc := newTestService(src)

	result, err := svc.Optimize(context.Background(), OptimizeInput{
		TargetDate: day(2026, time.June, 1),
		Goal:       GoalMinimizeOvertime,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.ProposedChanges) != 1 || result.ProposedChanges[0].CaseID != late.ID.String() {
		t.Fatalf("proposals = %+v, want single reschedule for the late case", result.ProposedChanges)
	}
	if result.OriginalMetrics.TotalOvertimeMinutes != 60 {
		t.Errorf("overtime = %d, want 60", result.OriginalMetrics.TotalOvertimeMinutes)
	}

	// Raising the allowed overtime clears the flag.
	extra := 90
	result, err = svc.Optimize(context.Background(), OptimizeInput{
		TargetDate:  day(2026, time.June, 1),
		Goal:        GoalMinimizeOvertime,
		Constraints: &Constraints{MaxOvertimeMinutes: &extra},
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.ProposedChanges) != 0 {
		t.Errorf("proposals = %d, want 0 with relaxed constraint", len(result.ProposedChanges))
	}
}

func TestOptimizeBalanceWorkload(t *testing.T) {
	// Six cases in or-001 against an average of 7/5 rooms.
	var cases []*surgery.Case
	for i := 0; i < 6; i++ {
		cases = append(cases, scheduledCase("or-001", (7+i)*60, 45))
	}
	cases = append(cases, scheduledCase("or-002", 7*60, 45))
	svc := newTestService(&stubCases{cases: cases})

	result, err := svc.Optimize(context.Background(), OptimizeInput{
		TargetDate: day(2026, time.June, 1),
		Goal:       GoalBalanceWorkload,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.ProposedChanges) != 1 || result.ProposedChanges[0].CaseID != "multiple" {
		t.Fatalf("proposals = %+v, want single room-level advisory", result.ProposedChanges)
	}
}

func TestOptimizePatientPreference(t *testing.T) {
	afternoon := scheduledCase("or-001", 13*60, 60)
	afternoon.PatientPreferences = &surgery.Preferences{PreferredTime: "morning"}
	morning := scheduledCase("or-002", 8*60, 60)
	morning.PatientPreferences = &surgery.Preferences{PreferredTime: "morning"}
	svc := newTestService(&stubCases{cases: []*surgery.Case{afternoon, morning}})

	result, err := svc.Optimize(context.Background(), OptimizeInput{
		TargetDate: day(2026, time.June, 1),
		Goal:       GoalPatientPreference,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.ProposedChanges) != 1 || result.ProposedChanges[0].CaseID != afternoon.ID.String() {
		t.Fatalf("proposals = %+v, want flag only for the afternoon case", result.ProposedChanges)
	}
}

func TestOptimizeRejectsUnknownGoal(t *testing.T) {
	svc := newTestService(&stubCases{})
	_, err := svc.Optimize(context.Background(), OptimizeInput{
		TargetDate: day(2026, time.June, 1),
		Goal:       "teleport_patients",
	})
	if !errors.Is(err, errs.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestApplyCommitsOnlyConcreteRoomChanges(t *testing.T) {
	target := unscheduledCase(90)
	src := &stubCases{cases: []*surgery.Case{target}}
	svc := newTestService(src)

	applied, err := svc.Apply(context.Background(), []ScheduleChange{
		{CaseID: target.ID.String(), ChangeType: ChangeReassignRoom, ProposedRoomID: "or-002"},
		{CaseID: "multiple", ChangeType: ChangeReassignRoom},
		{CaseID: target.ID.String(), ChangeType: ChangeReassignTime},
		{CaseID: uuid.NewString(), ChangeType: ChangeReassignRoom, ProposedRoomID: "or-001"},
		{CaseID: target.ID.String(), ChangeType: ChangeReassignRoom, ProposedRoomID: "or-999"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []string{"applied", "skipped", "skipped", "failed", "failed"}
	for i, w := range want {
		if applied[i].Status != w {
			t.Errorf("change %d status = %s, want %s", i, applied[i].Status, w)
		}
	}
	if src.reassigned[target.ID] != "or-002" {
		t.Error("concrete change was not committed")
	}
}

func TestApplyEmpty(t *testing.T) {
	svc := newTestService(&stubCases{})
	if _, err := svc.Apply(context.Background(), nil); !errors.Is(err, errs.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}
