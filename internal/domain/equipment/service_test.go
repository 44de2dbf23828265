package equipment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/platform/locking"
	"github.com/orflow/orflow/pkg/errs"
)

type memRegistry struct {
	items []*Item
}

func (m *memRegistry) All(_ context.Context) ([]*Item, error) { return m.items, nil }

func (m *memRegistry) GetByID(_ context.Context, id string) (*Item, error) {
	for _, i := range m.items {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, errs.NotFound("equipment %s", id)
}

type memSchedule struct {
	entries []*ScheduleEntry
}

func (m *memSchedule) Append(_ context.Context, e *ScheduleEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memSchedule) OnDate(_ context.Context, equipmentID string, date time.Time) ([]*ScheduleEntry, error) {
	var out []*ScheduleEntry
	for _, e := range m.entries {
		if e.EquipmentID != equipmentID {
			continue
		}
		y1, m1, d1 := e.StartTime.Date()
		y2, m2, d2 := date.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestService(schedule *memSchedule) *Service {
	if schedule == nil {
		schedule = &memSchedule{}
	}
	return NewService(&memRegistry{items: DefaultItems()}, schedule,
		locking.NewKeyedMutex(), zerolog.Nop(), 15)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckAvailabilityCleanWindow(t *testing.T) {
	svc := newTestService(nil)

	report, err := svc.CheckAvailability(context.Background(), CheckInput{
		Date: day(2026, time.June, 1), StartTime: "08:00", EndTime: "10:00",
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if len(report.Equipment) != 7 {
		t.Fatalf("equipment count = %d, want 7", len(report.Equipment))
	}
	if len(report.Conflicts) != 0 {
		t.Errorf("conflicts = %d, want 0", len(report.Conflicts))
	}
	for _, e := range report.Equipment {
		if e.ID == "eq-005" {
			if e.Available {
				t.Error("eq-005 under maintenance should be unavailable")
			}
		} else if !e.Available {
			t.Errorf("%s should be available", e.ID)
		}
	}
}

func TestCheckAvailabilityScheduleConflict(t *testing.T) {
	d := day(2026, time.June, 1)
	otherCase := uuid.New()
	schedule := &memSchedule{entries: []*ScheduleEntry{{
		ID:          uuid.New(),
		EquipmentID: "eq-001",
		CaseID:      otherCase,
		RoomID:      "or-001",
		StartTime:   d.Add(9 * time.Hour),
		EndTime:     d.Add(11 * time.Hour),
	}}}
	svc := newTestService(schedule)

	report, err := svc.CheckAvailability(context.Background(), CheckInput{
		Date: d, StartTime: "10:00", EndTime: "12:00", EquipmentIDs: []string{"eq-001"},
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if len(report.Equipment) != 1 {
		t.Fatalf("equipment count = %d, want 1 after id filter", len(report.Equipment))
	}
	e := report.Equipment[0]
	if e.Available {
		t.Error("conflicting window should mark item unavailable")
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].ConflictingCaseID != otherCase {
		t.Fatalf("conflicts = %+v", report.Conflicts)
	}
	// Conflicting use ends 11:00; buffer pushes next availability to 11:15.
	want := d.Add(11*time.Hour + 15*time.Minute)
	if e.NextAvailableTime == nil || !e.NextAvailableTime.Equal(want) {
		t.Errorf("nextAvailableTime = %v, want %v", e.NextAvailableTime, want)
	}
}

func TestCheckAvailabilityAdjacentWindowsDoNotConflict(t *testing.T) {
	d := day(2026, time.June, 1)
	schedule := &memSchedule{entries: []*ScheduleEntry{{
		EquipmentID: "eq-002",
		CaseID:      uuid.New(),
		StartTime:   d.Add(8 * time.Hour),
		EndTime:     d.Add(10 * time.Hour),
	}}}
	svc := newTestService(schedule)

	report, err := svc.CheckAvailability(context.Background(), CheckInput{
		Date: d, StartTime: "10:00", EndTime: "12:00", EquipmentIDs: []string{"eq-002"},
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !report.Equipment[0].Available {
		t.Error("back-to-back windows must not conflict")
	}
}

func TestCheckAvailabilityTypeFilter(t *testing.T) {
	svc := newTestService(nil)

	report, err := svc.CheckAvailability(context.Background(), CheckInput{
		Date: day(2026, time.June, 1), StartTime: "08:00", EndTime: "09:00",
		EquipmentTypes: []string{"imaging"},
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if len(report.Equipment) != 2 {
		t.Fatalf("imaging items = %d, want 2", len(report.Equipment))
	}
}

func TestCheckAvailabilityBadWindow(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.CheckAvailability(context.Background(), CheckInput{
		Date: day(2026, time.June, 1), StartTime: "12:00", EndTime: "08:00",
	})
	if !errors.Is(err, errs.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestMatchRequired(t *testing.T) {
	svc := newTestService(nil)

	available, unavailable, err := svc.MatchRequired(context.Background(),
		[]string{"robotic", "Heart-Lung", "Hover Gurney"})
	if err != nil {
		t.Fatalf("MatchRequired: %v", err)
	}
	if len(available) != 1 || available[0] != "robotic" {
		t.Errorf("available = %v, want [robotic]", available)
	}
	// Heart-Lung machine is under maintenance; Hover Gurney matches nothing.
	if len(unavailable) != 2 {
		t.Errorf("unavailable = %v, want 2 entries", unavailable)
	}
}

func TestReserveForCase(t *testing.T) {
	d := day(2026, time.June, 1)
	schedule := &memSchedule{}
	svc := newTestService(schedule)
	caseID := uuid.New()

	entries, err := svc.ReserveForCase(context.Background(), caseID, "or-001",
		[]string{"laparoscopic", "C-Arm"}, d.Add(8*time.Hour), d.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("ReserveForCase: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if len(schedule.entries) != 2 {
		t.Fatalf("appended = %d, want 2", len(schedule.entries))
	}

	// Second case colliding on the same item must conflict.
	_, err = svc.ReserveForCase(context.Background(), uuid.New(), "or-002",
		[]string{"laparoscopic"}, d.Add(9*time.Hour), d.Add(11*time.Hour))
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}
