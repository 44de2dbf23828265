package equipment

import (
	"time"

	"github.com/google/uuid"
)

// Item is a tracked piece of OR equipment.
type Item struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	Available            bool    `json:"available"`
	CurrentLocation      string  `json:"currentLocation"`
	MaintenanceScheduled bool    `json:"maintenanceScheduled"`
	MaintenanceNotes     *string `json:"maintenanceNotes,omitempty"`
}

// ScheduleEntry records one reserved use of an item by a case.
type ScheduleEntry struct {
	ID          uuid.UUID `json:"id"`
	EquipmentID string    `json:"equipmentId"`
	CaseID      uuid.UUID `json:"caseId"`
	RoomID      string    `json:"roomId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DefaultItems is the standard equipment fleet.
func DefaultItems() []*Item {
	notes := "Quarterly maintenance due"
	return []*Item{
		{ID: "eq-001", Name: "Da Vinci Robotic System", Type: "robotic", Available: true, CurrentLocation: "OR 1"},
		{ID: "eq-002", Name: "C-Arm Fluoroscopy", Type: "imaging", Available: true, CurrentLocation: "Storage A"},
		{ID: "eq-003", Name: "Laparoscopic Tower", Type: "laparoscopic", Available: true, CurrentLocation: "OR 3"},
		{ID: "eq-004", Name: "Ultrasound Machine", Type: "imaging", Available: true, CurrentLocation: "OR 2"},
		{ID: "eq-005", Name: "Heart-Lung Machine", Type: "cardiac", Available: true, CurrentLocation: "OR 2", MaintenanceScheduled: true, MaintenanceNotes: &notes},
		{ID: "eq-006", Name: "Neuronavigation System", Type: "navigation", Available: true, CurrentLocation: "OR 4"},
		{ID: "eq-007", Name: "Arthroscopy Tower", Type: "orthopedic", Available: true, CurrentLocation: "OR 3"},
	}
}
