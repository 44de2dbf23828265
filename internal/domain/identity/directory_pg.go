package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orflow/orflow/internal/platform/db"
)

type directoryPG struct{ pool *pgxpool.Pool }

// NewDirectoryPG returns a Directory backed by the practitioner and
// patient tables.
func NewDirectoryPG(pool *pgxpool.Pool) Directory { return &directoryPG{pool: pool} }

func (d *directoryPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, d.pool)
}

func (d *directoryPG) SurgeonName(ctx context.Context, surgeonID uuid.UUID) (string, error) {
	var first, last string
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT first_name, last_name FROM practitioner WHERE id = $1`, surgeonID).
		Scan(&first, &last)
	if err != nil {
		return "", fmt.Errorf("lookup surgeon %s: %w", surgeonID, err)
	}
	return fmt.Sprintf("Dr. %s %s", first, last), nil
}

func (d *directoryPG) PatientName(ctx context.Context, patientID uuid.UUID) (string, error) {
	var first, last string
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT first_name, last_name FROM patient WHERE id = $1`, patientID).
		Scan(&first, &last)
	if err != nil {
		return "", fmt.Errorf("lookup patient %s: %w", patientID, err)
	}
	return first + " " + last, nil
}

func (d *directoryPG) PatientExists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var one int
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT 1 FROM patient WHERE id = $1`, patientID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check patient %s: %w", patientID, err)
	}
	return true, nil
}
