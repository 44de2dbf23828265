package block

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orflow/orflow/internal/platform/db"
	"github.com/orflow/orflow/pkg/errs"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const blockCols = `id, operating_room_id, operating_room_name, surgeon_id, surgeon_name,
	specialty, block_date, start_time, end_time, block_type, recurrence, notes, created_at, updated_at`

func scanBlock(row pgx.Row) (*ORBlock, error) {
	var b ORBlock
	err := row.Scan(&b.ID, &b.OperatingRoomID, &b.OperatingRoomName, &b.SurgeonID, &b.SurgeonName,
		&b.Specialty, &b.Date, &b.StartTime, &b.EndTime, &b.BlockType, &b.Recurrence,
		&b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *ORBlock) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO or_block (id, operating_room_id, operating_room_name, surgeon_id, surgeon_name,
			specialty, block_date, start_time, end_time, block_type, recurrence, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		b.ID, b.OperatingRoomID, b.OperatingRoomName, b.SurgeonID, b.SurgeonName,
		b.Specialty, b.Date, b.StartTime, b.EndTime, b.BlockType, b.Recurrence,
		b.Notes, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ORBlock, error) {
	b, err := scanBlock(r.conn(ctx).QueryRow(ctx,
		`SELECT `+blockCols+` FROM or_block WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("or block %s", id)
	}
	return b, err
}

func (r *repoPG) List(ctx context.Context, f Filters) ([]*ORBlock, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.RoomID != "" {
		where = append(where, "operating_room_id = "+arg(f.RoomID))
	}
	if f.SurgeonID != uuid.Nil {
		where = append(where, "surgeon_id = "+arg(f.SurgeonID))
	}
	if f.Specialty != "" {
		where = append(where, "specialty ILIKE "+arg("%"+f.Specialty+"%"))
	}
	if f.BlockType != "" {
		where = append(where, "block_type = "+arg(string(f.BlockType)))
	}
	if f.Date != nil {
		where = append(where, "block_date = "+arg(*f.Date))
	}
	if f.From != nil {
		where = append(where, "block_date >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "block_date <= "+arg(*f.To))
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+blockCols+` FROM or_block
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY block_date, start_time`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*ORBlock{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repoPG) OnRoomDate(ctx context.Context, roomID string, date time.Time) ([]*ORBlock, error) {
	return r.List(ctx, Filters{RoomID: roomID, Date: &date})
}
