package block

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/domain/room"
	"github.com/orflow/orflow/internal/domain/surgery"
	"github.com/orflow/orflow/internal/platform/timeutil"
	"github.com/orflow/orflow/pkg/errs"
)

// NameResolver resolves surgeon display names, degrading to a
// placeholder when the directory cannot answer.
type NameResolver interface {
	SurgeonName(ctx context.Context, id uuid.UUID) (string, bool)
}

// CaseSource supplies the cases booked into a room on a date.
type CaseSource interface {
	CasesInRoom(ctx context.Context, roomID string, date time.Time) ([]*surgery.Case, error)
}

type Service struct {
	repo   Repository
	rooms  *room.Catalog
	ids    NameResolver
	cases  CaseSource
	logger zerolog.Logger
}

func NewService(repo Repository, rooms *room.Catalog, ids NameResolver, cases CaseSource, logger zerolog.Logger) *Service {
	return &Service{repo: repo, rooms: rooms, ids: ids, cases: cases, logger: logger}
}

// CreateBlockInput carries a new block reservation.
type CreateBlockInput struct {
	OperatingRoomID string
	SurgeonID       *uuid.UUID
	Specialty       *string
	Date            time.Time
	StartTime       string
	EndTime         string
	BlockType       BlockType
	Recurrence      Recurrence
	Notes           *string
}

// CreateBlock reserves a room window after checking it against every
// existing block in the same room on the same date. Touching
// boundaries (one block ends exactly when the next starts) do not
// conflict.
func (s *Service) CreateBlock(ctx context.Context, in CreateBlockInput) (*BlockResponse, error) {
	startMin, err := timeutil.ParseClock(in.StartTime)
	if err != nil {
		return nil, errs.BadRequest("invalid start time %q", in.StartTime)
	}
	endMin, err := timeutil.ParseClock(in.EndTime)
	if err != nil {
		return nil, errs.BadRequest("invalid end time %q", in.EndTime)
	}
	if startMin >= endMin {
		return nil, errs.BadRequest("block start %s must precede end %s", in.StartTime, in.EndTime)
	}
	if !in.BlockType.Valid() {
		return nil, errs.BadRequest("invalid block type %q", in.BlockType)
	}
	if in.Recurrence == "" {
		in.Recurrence = RecurNone
	}
	if !in.Recurrence.Valid() {
		return nil, errs.BadRequest("invalid recurrence %q", in.Recurrence)
	}
	if _, ok := s.rooms.Get(in.OperatingRoomID); !ok {
		return nil, errs.NotFound("operating room %s", in.OperatingRoomID)
	}

	date := time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, in.Date.Location())

	existing, err := s.repo.OnRoomDate(ctx, in.OperatingRoomID, date)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		bStart, err := timeutil.ParseClock(b.StartTime)
		if err != nil {
			continue
		}
		bEnd, err := timeutil.ParseClock(b.EndTime)
		if err != nil {
			continue
		}
		if timeutil.Overlaps(startMin, endMin, bStart, bEnd) {
			return nil, errs.Conflict("block %s-%s overlaps existing block %s (%s-%s) in room %s",
				in.StartTime, in.EndTime, b.ID, b.StartTime, b.EndTime, in.OperatingRoomID)
		}
	}

	now := time.Now()
	b := &ORBlock{
		ID:                uuid.New(),
		OperatingRoomID:   in.OperatingRoomID,
		OperatingRoomName: s.rooms.NameOr(in.OperatingRoomID),
		SurgeonID:         in.SurgeonID,
		Specialty:         in.Specialty,
		Date:              date,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		BlockType:         in.BlockType,
		Recurrence:        in.Recurrence,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.SurgeonID != nil {
		name, _ := s.ids.SurgeonName(ctx, *in.SurgeonID)
		b.SurgeonName = &name
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("block_id", b.ID.String()).
		Str("room", b.OperatingRoomID).
		Str("window", b.StartTime+"-"+b.EndTime).
		Msg("created or block")
	return s.withUtilization(ctx, b)
}

func (s *Service) GetBlock(ctx context.Context, id uuid.UUID) (*BlockResponse, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withUtilization(ctx, b)
}

func (s *Service) ListBlocks(ctx context.Context, f Filters) ([]*BlockResponse, error) {
	blocks, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*BlockResponse, 0, len(blocks))
	for _, b := range blocks {
		r, err := s.withUtilization(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CaseSummary is the per-case slice of a block's booked-time report.
type CaseSummary struct {
	ID                 uuid.UUID  `json:"id"`
	PatientName        string     `json:"patientName"`
	ProcedureName      string     `json:"procedureName"`
	EstimatedStartTime *time.Time `json:"estimatedStartTime,omitempty"`
	EstimatedEndTime   *time.Time `json:"estimatedEndTime,omitempty"`
	Status             string     `json:"status"`
}

// UtilizationSummary reports how much of a block's window is booked.
type UtilizationSummary struct {
	TotalBlockMinutes int     `json:"totalBlockMinutes"`
	UsedMinutes       int     `json:"usedMinutes"`
	UtilizationPct    float64 `json:"utilizationPct"`
	CaseCount         int     `json:"caseCount"`
}

// BlockResponse is the block with its booked-time report and case
// summaries attached. Every block read returns this shape.
type BlockResponse struct {
	*ORBlock
	Utilization UtilizationSummary `json:"utilization"`
	Cases       []CaseSummary      `json:"cases"`
}

// BlockUtilization reports the booked-time view of one block.
func (s *Service) BlockUtilization(ctx context.Context, id uuid.UUID) (*BlockResponse, error) {
	return s.GetBlock(ctx, id)
}

// withUtilization measures booked minutes inside the block window.
// Case time outside the window does not count toward the block.
func (s *Service) withUtilization(ctx context.Context, b *ORBlock) (*BlockResponse, error) {
	blockStart, err := timeutil.ParseClock(b.StartTime)
	if err != nil {
		return nil, errs.BadRequest("block %s has invalid start time %q", b.ID, b.StartTime)
	}
	blockEnd, err := timeutil.ParseClock(b.EndTime)
	if err != nil {
		return nil, errs.BadRequest("block %s has invalid end time %q", b.ID, b.EndTime)
	}

	cases, err := s.cases.CasesInRoom(ctx, b.OperatingRoomID, b.Date)
	if err != nil {
		return nil, err
	}

	r := &BlockResponse{
		ORBlock:     b,
		Utilization: UtilizationSummary{TotalBlockMinutes: blockEnd - blockStart},
		Cases:       []CaseSummary{},
	}
	for _, c := range cases {
		if !c.Active() || c.EstimatedStartTime == nil || c.EstimatedEndTime == nil {
			continue
		}
		cStart := timeutil.MinutesOfDay(*c.EstimatedStartTime)
		cEnd := timeutil.MinutesOfDay(*c.EstimatedEndTime)
		if !timeutil.Overlaps(cStart, cEnd, blockStart, blockEnd) {
			continue
		}
		lo := cStart
		if blockStart > lo {
			lo = blockStart
		}
		hi := cEnd
		if blockEnd < hi {
			hi = blockEnd
		}
		r.Utilization.UsedMinutes += hi - lo
		r.Cases = append(r.Cases, CaseSummary{
			ID:                 c.ID,
			PatientName:        c.PatientName,
			ProcedureName:      c.ProcedureName,
			EstimatedStartTime: c.EstimatedStartTime,
			EstimatedEndTime:   c.EstimatedEndTime,
			Status:             string(c.Status),
		})
	}
	r.Utilization.CaseCount = len(r.Cases)
	if r.Utilization.TotalBlockMinutes > 0 {
		r.Utilization.UtilizationPct = math.Round(
			float64(r.Utilization.UsedMinutes)/float64(r.Utilization.TotalBlockMinutes)*10000) / 100
	}
	return r, nil
}
