package equipment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orflow/orflow/internal/platform/locking"
	"github.com/orflow/orflow/internal/platform/timeutil"
	"github.com/orflow/orflow/pkg/errs"
)

type Service struct {
	registry Registry
	schedule ScheduleRepository
	locks    *locking.KeyedMutex
	logger   zerolog.Logger

	bufferMinutes int
}

func NewService(registry Registry, schedule ScheduleRepository, locks *locking.KeyedMutex,
	logger zerolog.Logger, bufferMinutes int) *Service {
	return &Service{registry: registry, schedule: schedule, locks: locks,
		logger: logger, bufferMinutes: bufferMinutes}
}

// CheckInput scopes an availability query: a calendar date, a wall-clock
// window, and optional id/type filters.
type CheckInput struct {
	Date           time.Time
	StartTime      string
	EndTime        string
	EquipmentIDs   []string
	EquipmentTypes []string
}

// ScheduledUse is one booked slot in an availability report.
type ScheduledUse struct {
	CaseID    uuid.UUID `json:"caseId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	RoomID    string    `json:"roomId"`
}

// ItemAvailability is one item's slice of an availability report.
type ItemAvailability struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Type                 string         `json:"type"`
	Available            bool           `json:"available"`
	CurrentLocation      string         `json:"currentLocation"`
	ScheduledUses        []ScheduledUse `json:"scheduledUses"`
	NextAvailableTime    *time.Time     `json:"nextAvailableTime,omitempty"`
	MaintenanceScheduled bool           `json:"maintenanceScheduled"`
	MaintenanceNotes     *string        `json:"maintenanceNotes,omitempty"`
}

// Conflict names a booked use that collides with the requested window.
type Conflict struct {
	EquipmentID       string    `json:"equipmentId"`
	ConflictingCaseID uuid.UUID `json:"conflictingCaseId"`
	ConflictTime      time.Time `json:"conflictTime"`
	Resolution        string    `json:"resolution"`
}

// AvailabilityReport answers one CheckAvailability query.
type AvailabilityReport struct {
	RequestedDate     time.Time          `json:"requestedDate"`
	RequestedTimeSlot struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"requestedTimeSlot"`
	Equipment []ItemAvailability `json:"equipment"`
	Conflicts []Conflict         `json:"conflicts"`
}

// CheckAvailability reports which items can serve a time window. An
// item is unavailable when it is flagged off, under maintenance, or any
// same-day scheduled use overlaps the window; the next available time
// is the latest conflicting end plus a reset buffer.
func (s *Service) CheckAvailability(ctx context.Context, in CheckInput) (*AvailabilityReport, error) {
	startMin, err := timeutil.ParseClock(in.StartTime)
	if err != nil {
		return nil, errs.BadRequest("invalid start time %q", in.StartTime)
	}
	endMin, err := timeutil.ParseClock(in.EndTime)
	if err != nil {
		return nil, errs.BadRequest("invalid end time %q", in.EndTime)
	}
	if startMin >= endMin {
		return nil, errs.BadRequest("start %s must precede end %s", in.StartTime, in.EndTime)
	}

	items, err := s.registry.All(ctx)
	if err != nil {
		return nil, err
	}
	items = filterItems(items, in.EquipmentIDs, in.EquipmentTypes)

	report := &AvailabilityReport{
		RequestedDate: in.Date,
		Equipment:     []ItemAvailability{},
		Conflicts:     []Conflict{},
	}
	report.RequestedTimeSlot.Start = in.StartTime
	report.RequestedTimeSlot.End = in.EndTime

	for _, item := range items {
		uses, err := s.schedule.OnDate(ctx, item.ID, in.Date)
		if err != nil {
			return nil, err
		}

		ia := ItemAvailability{
			ID:                   item.ID,
			Name:                 item.Name,
			Type:                 item.Type,
			Available:            item.Available && !item.MaintenanceScheduled,
			CurrentLocation:      item.CurrentLocation,
			ScheduledUses:        []ScheduledUse{},
			MaintenanceScheduled: item.MaintenanceScheduled,
			MaintenanceNotes:     item.MaintenanceNotes,
		}

		var nextAvailable time.Time
		for _, u := range uses {
			ia.ScheduledUses = append(ia.ScheduledUses, ScheduledUse{
				CaseID: u.CaseID, StartTime: u.StartTime, EndTime: u.EndTime, RoomID: u.RoomID,
			})
			useStart := timeutil.MinutesOfDay(u.StartTime)
			useEnd := timeutil.MinutesOfDay(u.EndTime)
			if !timeutil.Overlaps(startMin, endMin, useStart, useEnd) {
				continue
			}
			ia.Available = false
			report.Conflicts = append(report.Conflicts, Conflict{
				EquipmentID:       item.ID,
				ConflictingCaseID: u.CaseID,
				ConflictTime:      u.StartTime,
				Resolution:        "Consider rescheduling or using alternative equipment",
			})
			if u.EndTime.After(nextAvailable) {
				nextAvailable = u.EndTime
			}
		}
		if !ia.Available && !nextAvailable.IsZero() {
			t := nextAvailable.Add(time.Duration(s.bufferMinutes) * time.Minute)
			ia.NextAvailableTime = &t
		}

		report.Equipment = append(report.Equipment, ia)
	}
	return report, nil
}

func filterItems(items []*Item, ids, types []string) []*Item {
	if len(ids) > 0 {
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		var out []*Item
		for _, i := range items {
			if wanted[i.ID] {
				out = append(out, i)
			}
		}
		items = out
	}
	if len(types) > 0 {
		var out []*Item
		for _, i := range items {
			for _, t := range types {
				if strings.Contains(strings.ToLower(i.Type), strings.ToLower(t)) {
					out = append(out, i)
					break
				}
			}
		}
		items = out
	}
	return items
}

// MatchRequired resolves free-text equipment requirements against the
// fleet by name/type substring. Unreadiness never fails the caller;
// unmatched or busy names come back in unavailable.
func (s *Service) MatchRequired(ctx context.Context, required []string) (available, unavailable []string, err error) {
	if len(required) == 0 {
		return nil, nil, nil
	}
	items, err := s.registry.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, want := range required {
		needle := strings.ToLower(want)
		found := false
		for _, item := range items {
			if !strings.Contains(strings.ToLower(item.Name), needle) &&
				!strings.Contains(strings.ToLower(item.Type), needle) {
				continue
			}
			found = true
			if item.Available && !item.MaintenanceScheduled {
				available = append(available, want)
			} else {
				unavailable = append(unavailable, want)
			}
			break
		}
		if !found {
			unavailable = append(unavailable, want)
		}
	}
	return available, unavailable, nil
}

// ReserveForCase books matched items for a case's time window,
// appending schedule rows. A window collision on any matched item
// fails the whole reservation.
func (s *Service) ReserveForCase(ctx context.Context, caseID uuid.UUID, roomID string,
	required []string, start, end time.Time) ([]*ScheduleEntry, error) {
	if !end.After(start) {
		return nil, errs.BadRequest("reservation end must follow start")
	}
	items, err := s.registry.All(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*Item
	for _, want := range required {
		needle := strings.ToLower(want)
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Name), needle) ||
				strings.Contains(strings.ToLower(item.Type), needle) {
				matched = append(matched, item)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []*ScheduleEntry{}, nil
	}

	keys := make([]string, 0, len(matched))
	for _, item := range matched {
		keys = append(keys, "equipment|"+item.ID)
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	startMin := timeutil.MinutesOfDay(start)
	endMin := timeutil.MinutesOfDay(end)
	for _, item := range matched {
		uses, err := s.schedule.OnDate(ctx, item.ID, start)
		if err != nil {
			return nil, err
		}
		for _, u := range uses {
			if timeutil.Overlaps(startMin, endMin, timeutil.MinutesOfDay(u.StartTime), timeutil.MinutesOfDay(u.EndTime)) {
				return nil, errs.Conflict("equipment %s already booked by case %s", item.ID, u.CaseID)
			}
		}
	}

	entries := make([]*ScheduleEntry, 0, len(matched))
	for _, item := range matched {
		e := &ScheduleEntry{
			ID:          uuid.New(),
			EquipmentID: item.ID,
			CaseID:      caseID,
			RoomID:      roomID,
			StartTime:   start,
			EndTime:     end,
			CreatedAt:   time.Now(),
		}
		if err := s.schedule.Append(ctx, e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	s.logger.Info().
		Str("case_id", caseID.String()).
		Int("items", len(entries)).
		Msg("reserved equipment for case")
	return entries, nil
}
