package surgery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/platform/locking"
	"github.com/orflow/orflow/pkg/errs"
)

// -- Mock Repositories --

type mockCaseRepo struct {
	cases map[uuid.UUID]*Case
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: make(map[uuid.UUID]*Case)}
}

func (m *mockCaseRepo) Create(_ context.Context, c *Case) error {
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *mockCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, errs.NotFound("surgical case %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockCaseRepo) Update(_ context.Context, c *Case) error {
	if _, ok := m.cases[c.ID]; !ok {
		return errs.NotFound("surgical case %s", c.ID)
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *mockCaseRepo) List(_ context.Context, f CaseFilters) ([]*Case, error) {
	var out []*Case
	for _, c := range m.cases {
		if f.Date != nil && !c.ScheduledDate.Equal(*f.Date) {
			continue
		}
		if f.RoomID != "" && (c.OperatingRoomID == nil || *c.OperatingRoomID != f.RoomID) {
			continue
		}
		if f.SurgeonID != uuid.Nil && c.PrimarySurgeonID != f.SurgeonID {
			continue
		}
		if f.PatientID != uuid.Nil && c.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockCaseRepo) PatientCaseCounts(_ context.Context, patientID uuid.UUID) (int, int, error) {
	var cancelled, total int
	for _, c := range m.cases {
		if c.PatientID != patientID {
			continue
		}
		total++
		if c.Status == StatusCancelled {
			cancelled++
		}
	}
	return cancelled, total, nil
}

type mockHistoryRepo struct {
	byCase map[uuid.UUID]int
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{byCase: make(map[uuid.UUID]int)}
}

func (m *mockHistoryRepo) RecordDuration(_ context.Context, caseID uuid.UUID, _ string, _ uuid.UUID, minutes int) error {
	m.byCase[caseID] = minutes
	return nil
}

func (m *mockHistoryRepo) Samples(_ context.Context, _ string, _ uuid.UUID) ([]int, error) {
	var out []int
	for _, d := range m.byCase {
		out = append(out, d)
	}
	return out, nil
}

type stubResolver struct {
	missing map[uuid.UUID]bool
}

func (s *stubResolver) SurgeonName(_ context.Context, id uuid.UUID) (string, bool) {
	return "Dr. Vega", true
}

func (s *stubResolver) PatientName(_ context.Context, id uuid.UUID) (string, bool) {
	return "Ada Quinn", true
}

func (s *stubResolver) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	return !s.missing[id], nil
}

func newTestService(cases *mockCaseRepo, history *mockHistoryRepo, ids NameResolver) *Service {
	if ids == nil {
		ids = &stubResolver{}
	}
	return NewService(cases, history, room.DefaultCatalog(), ids,
		locking.NewKeyedMutex(), zerolog.Nop(), 7*60, 30)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func scheduleInput(roomID string) ScheduleCaseInput {
	var rid *string
	if roomID != "" {
		rid = &roomID
	}
	return ScheduleCaseInput{
		PatientID:         uuid.New(),
		PrimarySurgeonID:  uuid.New(),
		ProcedureCode:     "CHOL",
		ProcedureName:     "Laparoscopic Cholecystectomy",
		ScheduledDate:     day(2026, time.June, 1),
		EstimatedDuration: 90,
		Priority:          PriorityElective,
		AnesthesiaType:    "general",
		OperatingRoomID:   rid,
	}
}

func TestScheduleCaseFirstSlotOpensDay(t *testing.T) {
	svc := newTestService(newMockCaseRepo(), newMockHistoryRepo(), nil)

	c, err := svc.ScheduleCase(context.Background(), scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	if c.EstimatedStartTime == nil || c.EstimatedEndTime == nil {
		t.Fatal("expected placement times")
	}
	if got := c.EstimatedStartTime.Format("15:04"); got != "07:00" {
		t.Errorf("first case start = %s, want 07:00", got)
	}
	if got := c.EstimatedEndTime.Format("15:04"); got != "08:30" {
		t.Errorf("first case end = %s, want 08:30", got)
	}
	if c.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", c.Status)
	}
	if c.OperatingRoomName == nil || *c.OperatingRoomName != "OR 1 - General Surgery" {
		t.Errorf("room name not resolved from catalog: %v", c.OperatingRoomName)
	}
}

func TestScheduleCaseAppendsAfterTurnover(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	if _, err := svc.ScheduleCase(ctx, scheduleInput("or-001")); err != nil {
		t.Fatalf("first ScheduleCase: %v", err)
	}
	second, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("second ScheduleCase: %v", err)
	}
	// 07:00 + 90min case + 30min turnover
	if got := second.EstimatedStartTime.Format("15:04"); got != "09:00" {
		t.Errorf("second case start = %s, want 09:00", got)
	}
}

func TestScheduleCaseIgnoresCancelledWhenPlacing(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	first, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	cancelled := StatusCancelled
	if _, err := svc.UpdateCase(ctx, first.ID, UpdateCaseInput{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	next, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	if got := next.EstimatedStartTime.Format("15:04"); got != "07:00" {
		t.Errorf("start = %s, want 07:00 (cancelled case should not occupy the room)", got)
	}
}

func TestScheduleCaseUnknownPatient(t *testing.T) {
	missing := uuid.New()
	svc := newTestService(newMockCaseRepo(), newMockHistoryRepo(),
		&stubResolver{missing: map[uuid.UUID]bool{missing: true}})

	in := scheduleInput("")
	in.PatientID = missing
	_, err := svc.ScheduleCase(context.Background(), in)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestScheduleCaseValidation(t *testing.T) {
	svc := newTestService(newMockCaseRepo(), newMockHistoryRepo(), nil)
	ctx := context.Background()

	in := scheduleInput("")
	in.EstimatedDuration = 0
	if _, err := svc.ScheduleCase(ctx, in); !errors.Is(err, errs.ErrBadRequest) {
		t.Errorf("zero duration: err = %v, want bad request", err)
	}

	in = scheduleInput("")
	in.Priority = "stat"
	if _, err := svc.ScheduleCase(ctx, in); !errors.Is(err, errs.ErrBadRequest) {
		t.Errorf("bad priority: err = %v, want bad request", err)
	}

	in = scheduleInput("")
	in.AnesthesiaType = "spinal"
	if _, err := svc.ScheduleCase(ctx, in); !errors.Is(err, errs.ErrBadRequest) {
		t.Errorf("bad anesthesia: err = %v, want bad request", err)
	}
}

func TestUpdateCaseRejectsIllegalTransition(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	c, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	completed := StatusCompleted
	if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{Status: &completed}); !errors.Is(err, errs.ErrBadRequest) {
		t.Fatalf("scheduled -> completed: err = %v, want bad request", err)
	}

	inProgress := StatusInProgress
	if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{Status: &inProgress}); err != nil {
		t.Fatalf("scheduled -> in_progress: %v", err)
	}
	if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{Status: &completed}); err != nil {
		t.Fatalf("in_progress -> completed: %v", err)
	}
}

func TestUpdateCaseRecordsActualDurationOnce(t *testing.T) {
	repo := newMockCaseRepo()
	history := newMockHistoryRepo()
	svc := newTestService(repo, history, nil)
	ctx := context.Background()

	c, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}

	start := time.Date(2026, time.June, 1, 7, 0, 0, 0, time.UTC)
	end := start.Add(95 * time.Minute)
	got, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{ActualStartTime: &start, ActualEndTime: &end})
	if err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	if got.ActualDuration == nil || *got.ActualDuration != 95 {
		t.Fatalf("actual duration = %v, want 95", got.ActualDuration)
	}

	// A corrected end time must replace the sample, not add another.
	end = start.Add(110 * time.Minute)
	if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{ActualEndTime: &end}); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	samples, _ := history.Samples(ctx, "CHOL", c.PrimarySurgeonID)
	if len(samples) != 1 || samples[0] != 110 {
		t.Fatalf("samples = %v, want single 110", samples)
	}
}

func TestUpdateCaseDurationRecomputesEnd(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	c, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	d := 120
	got, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{EstimatedDuration: &d})
	if err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}
	if gotEnd := got.EstimatedEndTime.Format("15:04"); gotEnd != "09:00" {
		t.Errorf("end = %s, want 09:00 after duration change", gotEnd)
	}
}

func TestDisplaceClearsAssignment(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	c, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	got, err := svc.Displace(ctx, c.ID)
	if err != nil {
		t.Fatalf("Displace: %v", err)
	}
	if got.OperatingRoomID != nil || got.EstimatedStartTime != nil || got.EstimatedEndTime != nil {
		t.Error("displaced case should have no room or times")
	}
	if got.Status != StatusPostponed {
		t.Errorf("status = %s, want postponed", got.Status)
	}
}

func TestDisplaceCompletedCaseConflicts(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	c, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	inProgress, completed := StatusInProgress, StatusCompleted
	if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{Status: &inProgress}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{Status: &completed}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Displace(ctx, c.ID); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestNoShowRate(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	patientID := uuid.New()
	if rate, err := svc.NoShowRate(ctx, patientID); err != nil || rate != 0 {
		t.Fatalf("empty history: rate = %v err = %v, want 0", rate, err)
	}

	for i := 0; i < 4; i++ {
		in := scheduleInput("")
		in.PatientID = patientID
		c, err := svc.ScheduleCase(ctx, in)
		if err != nil {
			t.Fatalf("ScheduleCase: %v", err)
		}
		if i == 0 {
			cancelled := StatusCancelled
			if _, err := svc.UpdateCase(ctx, c.ID, UpdateCaseInput{Status: &cancelled}); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		}
	}

	rate, err := svc.NoShowRate(ctx, patientID)
	if err != nil {
		t.Fatalf("NoShowRate: %v", err)
	}
	if rate != 0.25 {
		t.Errorf("rate = %v, want 0.25", rate)
	}
}

func TestReassignMovesRoomKeepsSlot(t *testing.T) {
	repo := newMockCaseRepo()
	svc := newTestService(repo, newMockHistoryRepo(), nil)
	ctx := context.Background()

	c, err := svc.ScheduleCase(ctx, scheduleInput("or-001"))
	if err != nil {
		t.Fatalf("ScheduleCase: %v", err)
	}
	start := *c.EstimatedStartTime

	got, err := svc.Reassign(ctx, c.ID, "or-003")
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if got.OperatingRoomID == nil || *got.OperatingRoomID != "or-003" {
		t.Fatalf("room = %v, want or-003", got.OperatingRoomID)
	}
	if !got.EstimatedStartTime.Equal(start) {
		t.Error("reassign must not move the time slot")
	}
}
