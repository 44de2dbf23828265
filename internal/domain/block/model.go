package block

import (
	"time"

	"github.com/google/uuid"
)

// BlockType controls who may book into a block.
type BlockType string

const (
	TypeDedicated        BlockType = "dedicated"
	TypeShared           BlockType = "shared"
	TypeOpen             BlockType = "open"
	TypeEmergencyReserve BlockType = "emergency_reserve"
)

func (t BlockType) Valid() bool {
	switch t {
	case TypeDedicated, TypeShared, TypeOpen, TypeEmergencyReserve:
		return true
	}
	return false
}

// Recurrence describes how a block repeats.
type Recurrence string

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// ORBlock reserves a room time window for a surgeon or specialty.
// Start and end are wall-clock "HH:MM" strings on the block's date.
type ORBlock struct {
	ID                uuid.UUID  `json:"id"`
	OperatingRoomID   string     `json:"operatingRoomId"`
	OperatingRoomName string     `json:"operatingRoomName"`
	SurgeonID         *uuid.UUID `json:"surgeonId,omitempty"`
	SurgeonName       *string    `json:"surgeonName,omitempty"`
	Specialty         *string    `json:"specialty,omitempty"`
	Date              time.Time  `json:"date"`
	StartTime         string     `json:"startTime"`
	EndTime           string     `json:"endTime"`
	BlockType         BlockType  `json:"blockType"`
	Recurrence        Recurrence `json:"recurrence"`
	Notes             *string    `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
