package analytics

import "time"

// GroupBy selects the breakdown dimension of a utilization report.
type GroupBy string

const (
	GroupByRoom    GroupBy = "room"
	GroupBySurgeon GroupBy = "surgeon"
)

func (g GroupBy) Valid() bool {
	return g == "" || g == GroupByRoom || g == GroupBySurgeon
}

// Summary is the headline utilization block of a report.
type Summary struct {
	OverallUtilization   float64 `json:"overallUtilization"`
	TotalCases           int     `json:"totalCases"`
	AverageTurnoverTime  int     `json:"averageTurnoverTime"`
	CancellationRate     float64 `json:"cancellationRate"`
	FirstCaseOnTimeRate  float64 `json:"firstCaseOnTimeRate"`
	TotalOvertimeMinutes int     `json:"totalOvertimeMinutes"`
}

// BreakdownEntry is one row of a per-room or per-surgeon breakdown.
type BreakdownEntry struct {
	GroupKey  string             `json:"groupKey"`
	GroupName string             `json:"groupName"`
	Metrics   map[string]float64 `json:"metrics"`
}

// InsightType labels an insight's tone.
type InsightType string

const (
	InsightWarning     InsightType = "warning"
	InsightOpportunity InsightType = "opportunity"
	InsightAchievement InsightType = "achievement"
)

// Insight is a threshold-triggered observation on the period.
type Insight struct {
	Type           InsightType `json:"type"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// Period is the report's inclusive date range.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Report is a full utilization analytics response.
type Report struct {
	Period    Period           `json:"period"`
	GroupBy   GroupBy          `json:"groupBy,omitempty"`
	Summary   Summary          `json:"summary"`
	Breakdown []BreakdownEntry `json:"breakdown"`
	Insights  []Insight        `json:"insights"`
}
