package optimizer

import (
	"time"

	"github.com/google/uuid"
)

// Goal selects which optimization strategy runs.
type Goal string

const (
	GoalMaximizeUtilization Goal = "maximize_utilization"
	GoalMinimizeOvertime    Goal = "minimize_overtime"
	GoalBalanceWorkload     Goal = "balance_workload"
	GoalMinimizeTurnover    Goal = "minimize_turnover"
	GoalPatientPreference   Goal = "patient_preference"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalMaximizeUtilization, GoalMinimizeOvertime, GoalBalanceWorkload,
		GoalMinimizeTurnover, GoalPatientPreference:
		return true
	}
	return false
}

// Scope narrows which of the day's cases are candidates.
type Scope string

const (
	ScopeAll             Scope = "all"
	ScopeUnscheduledOnly Scope = "unscheduled_only"
	ScopeSpecificRooms   Scope = "specific_rooms"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeUnscheduledOnly, ScopeSpecificRooms:
		return true
	}
	return false
}

// Constraints tunes strategy thresholds.
type Constraints struct {
	MaxOvertimeMinutes *int `json:"maxOvertimeMinutes,omitempty"`
}

// ChangeType labels a proposed schedule change.
type ChangeType string

const (
	ChangeReassignRoom ChangeType = "reassign_room"
	ChangeReassignTime ChangeType = "reassign_time"
	ChangeReschedule   ChangeType = "reschedule"
)

// ScheduleChange is one advisory proposal. CaseID is a case uuid, or a
// marker like "multiple" for room-level advisories. ProposedRoomID is
// set only on actionable room reassignments and is what Apply consumes.
type ScheduleChange struct {
	CaseID         string     `json:"caseId"`
	ChangeType     ChangeType `json:"changeType"`
	OriginalValue  string     `json:"originalValue"`
	ProposedValue  string     `json:"proposedValue"`
	Reason         string     `json:"reason"`
	Impact         string     `json:"impact"`
	ProposedRoomID string     `json:"proposedRoomId,omitempty"`
}

// Metrics summarizes a day's schedule quality.
type Metrics struct {
	TotalUtilization       float64 `json:"totalUtilization"`
	TotalOvertimeMinutes   int     `json:"totalOvertimeMinutes"`
	AverageTurnoverMinutes int     `json:"averageTurnoverMinutes"`
	CasesScheduled         int     `json:"casesScheduled"`
	RoomsUsed              int     `json:"roomsUsed"`
	FirstCaseOnTimeRate    float64 `json:"firstCaseOnTimeRate"`
}

// Improvement is the metric delta an optimization run projects.
type Improvement struct {
	UtilizationChange  float64 `json:"utilizationChange"`
	OvertimeChange     int     `json:"overtimeChange"`
	TurnoverTimeChange int     `json:"turnoverTimeChange"`
}

// Result is an optimization run's full output. Nothing has been
// committed when it returns; Apply executes selected changes.
type Result struct {
	OptimizationID   uuid.UUID        `json:"optimizationId"`
	TargetDate       time.Time        `json:"targetDate"`
	Goal             Goal             `json:"goal"`
	Status           string           `json:"status"` // completed | partial
	OriginalMetrics  Metrics          `json:"originalMetrics"`
	OptimizedMetrics Metrics          `json:"optimizedMetrics"`
	Improvement      Improvement      `json:"improvement"`
	ProposedChanges  []ScheduleChange `json:"proposedChanges"`
	Warnings         []string         `json:"warnings"`
	ExecutedAt       time.Time        `json:"executedAt"`
}
