package surgery

import (
	"time"

	"github.com/google/uuid"
)

// Priority tiers govern how aggressively a case may preempt existing
// schedule commitments.
type Priority string

const (
	PriorityElective Priority = "elective"
	PriorityUrgent   Priority = "urgent"
	PriorityEmergent Priority = "emergent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityElective, PriorityUrgent, PriorityEmergent:
		return true
	}
	return false
}

// Status is the case lifecycle state. Cases are never hard-deleted;
// cancellation and postponement are status changes.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusPending    Status = "pending"
	StatusPostponed  Status = "postponed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusPostponed, StatusCancelled},
	StatusPending:    {StatusScheduled, StatusCancelled},
	StatusPostponed:  {StatusScheduled, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

var validAnesthesiaTypes = map[string]bool{
	"general": true, "regional": true, "local": true, "sedation": true, "none": true,
}

func ValidAnesthesiaType(t string) bool { return validAnesthesiaTypes[t] }

var validLateralities = map[string]bool{
	"left": true, "right": true, "bilateral": true, "not_applicable": true,
}

func ValidLaterality(l string) bool { return validLateralities[l] }

// StaffRequirements counts the staff a case needs.
type StaffRequirements struct {
	Nurses            int `json:"nurses"`
	ScrubTechs        int `json:"scrubTechs"`
	Anesthesiologists int `json:"anesthesiologists"`
	Residents         int `json:"residents"`
}

// Preferences records patient scheduling preferences.
type Preferences struct {
	PreferredTime       string  `json:"preferredTime"` // morning | afternoon | no_preference
	InterpreterNeeded   bool    `json:"interpreterNeeded"`
	InterpreterLanguage *string `json:"interpreterLanguage,omitempty"`
}

// Case is the central scheduling unit: one procedure for one patient.
type Case struct {
	ID                  uuid.UUID          `json:"id"`
	PatientID           uuid.UUID          `json:"patientId"`
	PatientName         string             `json:"patientName"`
	PrimarySurgeonID    uuid.UUID          `json:"primarySurgeonId"`
	PrimarySurgeonName  string             `json:"primarySurgeonName"`
	ProcedureCode       string             `json:"procedureCode"`
	ProcedureName       string             `json:"procedureName"`
	ScheduledDate       time.Time          `json:"scheduledDate"`
	EstimatedStartTime  *time.Time         `json:"estimatedStartTime,omitempty"`
	EstimatedEndTime    *time.Time         `json:"estimatedEndTime,omitempty"`
	EstimatedDuration   int                `json:"estimatedDuration"` // minutes
	ActualStartTime     *time.Time         `json:"actualStartTime,omitempty"`
	ActualEndTime       *time.Time         `json:"actualEndTime,omitempty"`
	ActualDuration      *int               `json:"actualDuration,omitempty"`
	Priority            Priority           `json:"priority"`
	Status              Status             `json:"status"`
	AnesthesiaType      string             `json:"anesthesiaType"`
	OperatingRoomID     *string            `json:"operatingRoomId,omitempty"`
	OperatingRoomName   *string            `json:"operatingRoomName,omitempty"`
	BlockID             *uuid.UUID         `json:"blockId,omitempty"`
	Laterality          string             `json:"laterality"`
	SpecialEquipment    []string           `json:"specialEquipment"`
	StaffRequirements   *StaffRequirements `json:"staffRequirements,omitempty"`
	AssistingSurgeonIDs []uuid.UUID        `json:"assistingSurgeonIds"`
	PreOpDiagnosis      *string            `json:"preOpDiagnosis,omitempty"`
	Notes               *string            `json:"notes,omitempty"`
	PatientPreferences  *Preferences       `json:"patientPreferences,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// Unscheduled reports whether the case has no room assignment yet.
func (c *Case) Unscheduled() bool { return c.OperatingRoomID == nil }

// Active reports whether the case still occupies schedule capacity.
func (c *Case) Active() bool {
	return c.Status != StatusCancelled && c.Status != StatusCompleted
}
