package surgery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CaseFilters narrows List results. Zero values mean "no filter".
type CaseFilters struct {
	Date      *time.Time
	From      *time.Time
	To        *time.Time
	RoomID    string
	SurgeonID uuid.UUID
	PatientID uuid.UUID
	Status    Status
}

type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	List(ctx context.Context, f CaseFilters) ([]*Case, error)
	// PatientCaseCounts returns (cancelled, total) over the patient's
	// past cases, the basis of the no-show rate.
	PatientCaseCounts(ctx context.Context, patientID uuid.UUID) (cancelled, total int, err error)
}

// HistoryRepository stores observed case durations keyed by
// (procedureCode, surgeonID). Records are upserted per case id so a
// repeated actual-time update corrects the sample instead of appending
// a duplicate.
type HistoryRepository interface {
	RecordDuration(ctx context.Context, caseID uuid.UUID, procedureCode string, surgeonID uuid.UUID, minutes int) error
	Samples(ctx context.Context, procedureCode string, surgeonID uuid.UUID) ([]int, error)
}
