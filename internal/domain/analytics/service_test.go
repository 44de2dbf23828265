package analytics

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
	cases []*surgery.Case
}

func (s *stubCases) ListCases(_ context.Context, _ surgery.CaseFilters) ([]*surgery.Case, error) {
	return s.cases, nil
}

func defaultThresholds() Thresholds {
	return Thresholds{
		UtilizationLowPct:   70,
		UtilizationHighPct:  85,
		TurnoverWarnMinutes: 45,
		CancellationWarnPct: 5,
	}
}

func newTestService(cases []*surgery.Case) *Service {
	return NewService(&stubCases{cases: cases}, room.DefaultCatalog(), zerolog.Nop(),
		17*60, defaultThresholds())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func completedCase(roomID string, date time.Time, estStartMin, actualStartMin, actualMin int) *surgery.Case {
	estStart := date.Add(time.Duration(estStartMin) * time.Minute)
	estEnd := estStart.Add(time.Duration(actualMin) * time.Minute)
	actStart := date.Add(time.Duration(actualStartMin) * time.Minute)
	actEnd := actStart.Add(time.Duration(actualMin) * time.Minute)
	dur := actualMin
	return &surgery.Case{
		ID:                 uuid.New(),
		PrimarySurgeonID:   uuid.New(),
		PrimarySurgeonName: "Dr. Vega",
		ScheduledDate:      date,
		OperatingRoomID:    &roomID,
		EstimatedStartTime: &estStart,
		EstimatedEndTime:   &estEnd,
		EstimatedDuration:  actualMin,
		ActualStartTime:    &actStart,
		ActualEndTime:      &actEnd,
		ActualDuration:     &dur,
		Status:             surgery.StatusCompleted,
		Priority:           surgery.PriorityElective,
	}
}

func TestUtilizationSummary(t *testing.T) {
	d := day(2026, time.May, 4)
	// Two completed cases of 240 actual minutes on a one-day period:
	// 480 / (1 day x 5 rooms x 480) = 20% utilization.
	first := completedCase("or-001", d, 7*60, 7*60+5, 240)
	second := completedCase("or-001", d, 12*60, 12*60, 240)
	svc := newTestService([]*surgery.Case{first, second})

	report, err := svc.Utilization(context.Background(), UtilizationInput{From: d, To: d})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}
	if report.Summary.OverallUtilization != 20 {
		t.Errorf("utilization = %v, want 20", report.Summary.OverallUtilization)
	}
	if report.Summary.TotalCases != 2 {
		t.Errorf("total cases = %d, want 2", report.Summary.TotalCases)
	}
	// Gap between first actual end (11:05) and second actual start (12:00).
	if report.Summary.AverageTurnoverTime != 55 {
		t.Errorf("turnover = %d, want 55", report.Summary.AverageTurnoverTime)
	}
	// First case started 5 minutes late: on time.
	if report.Summary.FirstCaseOnTimeRate != 100 {
		t.Errorf("first-case rate = %v, want 100", report.Summary.FirstCaseOnTimeRate)
	}
}

func TestUtilizationDefaultsWithNoMeasurableData(t *testing.T) {
	d := day(2026, time.May, 4)
	svc := newTestService(nil)

	report, err := svc.Utilization(context.Background(), UtilizationInput{From: d, To: d})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}
	if report.Summary.AverageTurnoverTime != 30 {
		t.Errorf("turnover default = %d, want 30", report.Summary.AverageTurnoverTime)
	}
	if report.Summary.FirstCaseOnTimeRate != 85 {
		t.Errorf("first-case default = %v, want 85", report.Summary.FirstCaseOnTimeRate)
	}
}

func TestUtilizationOvertime(t *testing.T) {
	d := day(2026, time.May, 4)
	// Actual end 18:00: one hour past the 17:00 day end.
	late := completedCase("or-002", d, 14*60, 14*60, 240)
	svc := newTestService([]*surgery.Case{late})

	report, err := svc.Utilization(context.Background(), UtilizationInput{From: d, To: d})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}
	if report.Summary.TotalOvertimeMinutes != 60 {
		t.Errorf("overtime = %d, want 60", report.Summary.TotalOvertimeMinutes)
	}
}

func TestUtilizationInsights(t *testing.T) {
	d := day(2026, time.May, 4)
	// Low utilization, slow turnover (55 min), and one cancellation in
	// three cases (33% rate).
	first := completedCase("or-001", d, 7*60, 7*60, 240)
	second := completedCase("or-001", d, 12*60, 11*60+55+60, 60)
	second.ActualStartTime = ptrTime(d.Add(12*time.Hour + 55*time.Minute))
	end := second.ActualStartTime.Add(60 * time.Minute)
	second.ActualEndTime = &end
	cancelled := completedCase("or-002", d, 9*60, 9*60, 60)
	cancelled.Status = surgery.StatusCancelled
	svc := newTestService([]*surgery.Case{first, second, cancelled})

	report, err := svc.Utilization(context.Background(), UtilizationInput{From: d, To: d})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}

	types := map[InsightType]int{}
	for _, ins := range report.Insights {
		types[ins.Type]++
	}
	if types[InsightOpportunity] != 1 {
		t.Errorf("insights = %+v, want one low-utilization opportunity", report.Insights)
	}
	// Slow turnover and a 33% cancellation rate both warn.
	if types[InsightWarning] != 2 {
		t.Errorf("insights = %+v, want two warnings", report.Insights)
	}
}

func TestUtilizationBreakdownByRoom(t *testing.T) {
	d := day(2026, time.May, 4)
	c1 := completedCase("or-001", d, 7*60, 7*60, 240)
	c2 := completedCase("or-003", d, 8*60, 8*60, 120)
	svc := newTestService([]*surgery.Case{c1, c2})

	report, err := svc.Utilization(context.Background(), UtilizationInput{
		From: d, To: d, GroupBy: GroupByRoom,
	})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}
	if len(report.Breakdown) != 5 {
		t.Fatalf("breakdown rows = %d, want one per room", len(report.Breakdown))
	}
	byKey := map[string]BreakdownEntry{}
	for _, e := range report.Breakdown {
		byKey[e.GroupKey] = e
	}
	if got := byKey["or-001"].Metrics["utilizationRate"]; got != 50 {
		t.Errorf("or-001 utilization = %v, want 50 (240/480)", got)
	}
	if got := byKey["or-003"].Metrics["caseCount"]; got != 1 {
		t.Errorf("or-003 case count = %v, want 1", got)
	}
	if got := byKey["or-005"].Metrics["caseCount"]; got != 0 {
		t.Errorf("or-005 case count = %v, want 0", got)
	}
}

func TestUtilizationBreakdownBySurgeon(t *testing.T) {
	d := day(2026, time.May, 4)
	c1 := completedCase("or-001", d, 7*60, 7*60, 120)
	c2 := completedCase("or-002", d, 7*60, 7*60, 120)
	c2.PrimarySurgeonID = c1.PrimarySurgeonID
	c3 := completedCase("or-003", d, 7*60, 7*60, 120)
	svc := newTestService([]*surgery.Case{c1, c2, c3})

	report, err := svc.Utilization(context.Background(), UtilizationInput{
		From: d, To: d, GroupBy: GroupBySurgeon,
	})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}
	if len(report.Breakdown) != 2 {
		t.Fatalf("breakdown rows = %d, want 2 surgeons", len(report.Breakdown))
	}
	if report.Breakdown[0].Metrics["caseCount"] != 2 {
		t.Errorf("first surgeon case count = %v, want 2", report.Breakdown[0].Metrics["caseCount"])
	}
}

func TestUtilizationRoomFilter(t *testing.T) {
	d := day(2026, time.May, 4)
	c1 := completedCase("or-001", d, 7*60, 7*60, 120)
	c2 := completedCase("or-002", d, 7*60, 7*60, 120)
	svc := newTestService([]*surgery.Case{c1, c2})

	report, err := svc.Utilization(context.Background(), UtilizationInput{
		From: d, To: d, OperatingRoomIDs: []string{"or-001"},
	})
	if err != nil {
		t.Fatalf("Utilization: %v", err)
	}
	if report.Summary.TotalCases != 1 {
		t.Errorf("total cases = %d, want 1 after room filter", report.Summary.TotalCases)
	}
}

func TestUtilizationInvalidPeriod(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.Utilization(context.Background(), UtilizationInput{
		From: day(2026, time.May, 4), To: day(2026, time.May, 1),
	})
	if !errors.Is(err, errs.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
