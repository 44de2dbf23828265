package equipment

import (
	"context"
	"time"
)

// Registry reads the equipment fleet.
type Registry interface {
	All(ctx context.Context) ([]*Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
}

// ScheduleRepository is the append-only use log.
type ScheduleRepository interface {
	Append(ctx context.Context, e *ScheduleEntry) error
	// OnDate returns an item's scheduled uses on a calendar day.
	OnDate(ctx context.Context, equipmentID string, date time.Time) ([]*ScheduleEntry, error)
}
