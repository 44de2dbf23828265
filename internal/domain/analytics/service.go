package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/internal/platform/timeutil"
	"github.com/orflow/orflow/pkg/errs"
)

// CaseSource reads cases for a period.
type CaseSource interface {
	ListCases(ctx context.Context, f surgery.CaseFilters) ([]*surgery.Case, error)
}

// Thresholds drive insight generation.
type Thresholds struct {
	UtilizationLowPct   float64
	UtilizationHighPct  float64
	TurnoverWarnMinutes float64
	CancellationWarnPct float64
}

type Service struct {
	cases  CaseSource
	rooms  *room.Catalog
	logger zerolog.Logger

	dayEndMinutes int
	thresholds    Thresholds
}

func NewService(cases CaseSource, rooms *room.Catalog, logger zerolog.Logger,
	dayEndMinutes int, thresholds Thresholds) *Service {
	return &Service{cases: cases, rooms: rooms, logger: logger,
		dayEndMinutes: dayEndMinutes, thresholds: thresholds}
}

// UtilizationInput scopes one report.
type UtilizationInput struct {
	From             time.Time
	To               time.Time
	SurgeonIDs       []uuid.UUID
	OperatingRoomIDs []string
	GroupBy          GroupBy
}

const minutesPerRoomDay = 480

// Utilization builds the period report: the utilization denominator is
// 480 minutes per room per day over the whole catalog, the numerator
// actual minutes of completed cases.
func (s *Service) Utilization(ctx context.Context, in UtilizationInput) (*Report, error) {
	if in.To.Before(in.From) {
		return nil, errs.BadRequest("period end precedes start")
	}
	if !in.GroupBy.Valid() {
		return nil, errs.BadRequest("invalid groupBy %q", in.GroupBy)
	}

	all, err := s.cases.ListCases(ctx, surgery.CaseFilters{From: &in.From, To: &in.To})
	if err != nil {
		return nil, err
	}

	cases := filterCases(all, in.SurgeonIDs, in.OperatingRoomIDs)

	var completed, cancelled []*surgery.Case
	for _, c := range cases {
		switch c.Status {
		case surgery.StatusCompleted:
			completed = append(completed, c)
		case surgery.StatusCancelled:
			cancelled = append(cancelled, c)
		}
	}

	daysInPeriod := int(in.To.Sub(in.From).Hours()/24) + 1
	availableMinutes := daysInPeriod * s.rooms.Len() * minutesPerRoomDay

	actualMinutes := 0
	for _, c := range completed {
		if c.ActualDuration != nil {
			actualMinutes += *c.ActualDuration
		} else {
			actualMinutes += c.EstimatedDuration
		}
	}

	utilization := 0.0
	if availableMinutes > 0 {
		utilization = float64(actualMinutes) / float64(availableMinutes) * 100
	}

	byRoomDate := map[string][]*surgery.Case{}
	for _, c := range completed {
		if c.OperatingRoomID == nil {
			continue
		}
		key := *c.OperatingRoomID + "|" + c.ScheduledDate.Format("2006-01-02")
		byRoomDate[key] = append(byRoomDate[key], c)
	}

	avgTurnover := s.averageTurnover(byRoomDate)
	firstCaseRate := s.firstCaseOnTimeRate(byRoomDate)

	cancellationRate := 0.0
	if len(cases) > 0 {
		cancellationRate = float64(len(cancelled)) / float64(len(cases)) * 100
	}

	overtime := 0
	for _, c := range completed {
		if c.ActualEndTime == nil {
			continue
		}
		if end := timeutil.MinutesOfDay(*c.ActualEndTime); end > s.dayEndMinutes {
			overtime += end - s.dayEndMinutes
		}
	}

	report := &Report{
		Period:  Period{From: in.From, To: in.To},
		GroupBy: in.GroupBy,
		Summary: Summary{
			OverallUtilization:   round1(utilization),
			TotalCases:           len(cases),
			AverageTurnoverTime:  int(math.Round(avgTurnover)),
			CancellationRate:     round1(cancellationRate),
			FirstCaseOnTimeRate:  round1(firstCaseRate),
			TotalOvertimeMinutes: overtime,
		},
		Breakdown: s.breakdown(cases, in.GroupBy, daysInPeriod),
		Insights:  s.insights(utilization, avgTurnover, cancellationRate),
	}
	return report, nil
}

func filterCases(cases []*surgery.Case, surgeonIDs []uuid.UUID, roomIDs []string) []*surgery.Case {
	if len(surgeonIDs) == 0 && len(roomIDs) == 0 {
		return cases
	}
	surgeons := map[uuid.UUID]bool{}
	for _, id := range surgeonIDs {
		surgeons[id] = true
	}
	rooms := map[string]bool{}
	for _, id := range roomIDs {
		rooms[id] = true
	}

	var out []*surgery.Case
	for _, c := range cases {
		if len(surgeons) > 0 && !surgeons[c.PrimarySurgeonID] {
			continue
		}
		if len(rooms) > 0 && (c.OperatingRoomID == nil || !rooms[*c.OperatingRoomID]) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// averageTurnover is the mean gap between consecutive completed cases
// in the same room on the same day, by actual times. 30 with no pairs.
func (s *Service) averageTurnover(byRoomDate map[string][]*surgery.Case) float64 {
	total := 0.0
	count := 0
	for _, roomCases := range byRoomDate {
		sorted := make([]*surgery.Case, len(roomCases))
		copy(sorted, roomCases)
		sort.Slice(sorted, func(i, j int) bool {
			return actualStart(sorted[i]).Before(actualStart(sorted[j]))
		})
		for i := 1; i < len(sorted); i++ {
			prevEnd := sorted[i-1].ActualEndTime
			currStart := sorted[i].ActualStartTime
			if prevEnd != nil && currStart != nil {
				total += currStart.Sub(*prevEnd).Minutes()
				count++
			}
		}
	}
	if count == 0 {
		return 30
	}
	return total / float64(count)
}

func actualStart(c *surgery.Case) time.Time {
	if c.ActualStartTime != nil {
		return *c.ActualStartTime
	}
	return time.Time{}
}

// firstCaseOnTimeRate counts each room-day's first case as on time when
// it started within 15 minutes of plan. 85 with no measurable days.
func (s *Service) firstCaseOnTimeRate(byRoomDate map[string][]*surgery.Case) float64 {
	total := 0
	onTime := 0
	for _, roomCases := range byRoomDate {
		var first *surgery.Case
		for _, c := range roomCases {
			if c.EstimatedStartTime == nil {
				continue
			}
			if first == nil || c.EstimatedStartTime.Before(*first.EstimatedStartTime) {
				first = c
			}
		}
		if first == nil || first.ActualStartTime == nil {
			continue
		}
		total++
		if first.ActualStartTime.Sub(*first.EstimatedStartTime).Minutes() <= 15 {
			onTime++
		}
	}
	if total == 0 {
		return 85
	}
	return float64(onTime) / float64(total) * 100
}

func (s *Service) breakdown(cases []*surgery.Case, groupBy GroupBy, daysInPeriod int) []BreakdownEntry {
	out := []BreakdownEntry{}
	switch groupBy {
	case GroupByRoom:
		for _, r := range s.rooms.All() {
			var roomCases, roomCancelled []*surgery.Case
			scheduledMinutes := 0
			for _, c := range cases {
				if c.OperatingRoomID == nil || *c.OperatingRoomID != r.ID {
					continue
				}
				roomCases = append(roomCases, c)
				scheduledMinutes += c.EstimatedDuration
				if c.Status == surgery.StatusCancelled {
					roomCancelled = append(roomCancelled, c)
				}
			}
			available := daysInPeriod * minutesPerRoomDay
			m := map[string]float64{
				"utilizationRate":  0,
				"caseCount":        float64(len(roomCases)),
				"cancellationRate": 0,
			}
			if available > 0 {
				m["utilizationRate"] = round1(float64(scheduledMinutes) / float64(available) * 100)
			}
			if len(roomCases) > 0 {
				m["cancellationRate"] = round1(float64(len(roomCancelled)) / float64(len(roomCases)) * 100)
			}
			out = append(out, BreakdownEntry{GroupKey: r.ID, GroupName: r.Name, Metrics: m})
		}
	case GroupBySurgeon:
		bySurgeon := map[uuid.UUID][]*surgery.Case{}
		var order []uuid.UUID
		for _, c := range cases {
			if _, seen := bySurgeon[c.PrimarySurgeonID]; !seen {
				order = append(order, c.PrimarySurgeonID)
			}
			bySurgeon[c.PrimarySurgeonID] = append(bySurgeon[c.PrimarySurgeonID], c)
		}
		for _, id := range order {
			surgeonCases := bySurgeon[id]
			name := surgeonCases[0].PrimarySurgeonName
			if name == "" {
				name = "Surgeon " + id.String()[:8]
			}
			cancelled := 0
			for _, c := range surgeonCases {
				if c.Status == surgery.StatusCancelled {
					cancelled++
				}
			}
			out = append(out, BreakdownEntry{
				GroupKey:  id.String(),
				GroupName: name,
				Metrics: map[string]float64{
					"caseCount":        float64(len(surgeonCases)),
					"cancellationRate": round1(float64(cancelled) / float64(len(surgeonCases)) * 100),
				},
			})
		}
	}
	return out
}

func (s *Service) insights(utilization, avgTurnover, cancellationRate float64) []Insight {
	out := []Insight{}
	if utilization < s.thresholds.UtilizationLowPct {
		out = append(out, Insight{
			Type: InsightOpportunity,
			Message: fmt.Sprintf("OR utilization is at %.1f%%, below the %.0f%% target",
				utilization, s.thresholds.UtilizationLowPct),
			Recommendation: "Consider expanding block time allocation or increasing case scheduling",
		})
	} else if utilization > s.thresholds.UtilizationHighPct {
		out = append(out, Insight{
			Type:    InsightAchievement,
			Message: fmt.Sprintf("Excellent OR utilization at %.1f%%", utilization),
		})
	}
	if avgTurnover > s.thresholds.TurnoverWarnMinutes {
		out = append(out, Insight{
			Type:           InsightWarning,
			Message:        fmt.Sprintf("Average turnover time of %.0f minutes exceeds target", avgTurnover),
			Recommendation: "Review room turnover procedures and staffing",
		})
	}
	if cancellationRate > s.thresholds.CancellationWarnPct {
		out = append(out, Insight{
			Type:           InsightWarning,
			Message:        fmt.Sprintf("Cancellation rate of %.1f%% is above acceptable threshold", cancellationRate),
			Recommendation: "Implement pre-operative screening calls and confirmation protocols",
		})
	}
	return out
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
