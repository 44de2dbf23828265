package equipment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orflow/orflow/internal/platform/db"
	"github.com/orflow/orflow/pkg/errs"
)

type registryPG struct{ pool *pgxpool.Pool }

func NewRegistryPG(pool *pgxpool.Pool) Registry { return &registryPG{pool: pool} }

func (r *registryPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const itemCols = `id, name, type, available, current_location, maintenance_scheduled, maintenance_notes`

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.Type, &i.Available, &i.CurrentLocation,
		&i.MaintenanceScheduled, &i.MaintenanceNotes)
	return &i, err
}

func (r *registryPG) All(ctx context.Context) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM equipment ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Item{}
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *registryPG) GetByID(ctx context.Context, id string) (*Item, error) {
	i, err := scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM equipment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("equipment %s", id)
	}
	return i, err
}

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *scheduleRepoPG) Append(ctx context.Context, e *ScheduleEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO equipment_schedule (id, equipment_id, case_id, room_id, start_time, end_time, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.EquipmentID, e.CaseID, e.RoomID, e.StartTime, e.EndTime, e.CreatedAt)
	return err
}

func (r *scheduleRepoPG) OnDate(ctx context.Context, equipmentID string, date time.Time) ([]*ScheduleEntry, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, equipment_id, case_id, room_id, start_time, end_time, created_at
		FROM equipment_schedule
		WHERE equipment_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`, equipmentID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*ScheduleEntry{}
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.ID, &e.EquipmentID, &e.CaseID, &e.RoomID,
			&e.StartTime, &e.EndTime, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
