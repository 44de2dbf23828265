package block

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filters narrows List results. Zero values mean "no filter";
// Specialty matches as a case-insensitive substring.
type Filters struct {
	RoomID    string
	SurgeonID uuid.UUID
	Specialty string
	BlockType BlockType
	Date      *time.Time
	From      *time.Time
	To        *time.Time
}

type Repository interface {
	Create(ctx context.Context, b *ORBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*ORBlock, error)
	// List returns matching blocks in ascending date order.
	List(ctx context.Context, f Filters) ([]*ORBlock, error)
	// OnRoomDate returns every block in a room on a date, for
	// conflict checks.
	OnRoomDate(ctx context.Context, roomID string, date time.Time) ([]*ORBlock, error)
}
