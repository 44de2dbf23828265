package surgery

import (
	"context"
	"encoding/json"
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

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

func (r *caseRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const caseCols = `id, patient_id, patient_name, primary_surgeon_id, primary_surgeon_name,
	procedure_code, procedure_name, scheduled_date, estimated_start_time, estimated_end_time,
	estimated_duration, actual_start_time, actual_end_time, actual_duration, priority, status,
	anesthesia_type, operating_room_id, operating_room_name, block_id, laterality,
	special_equipment, staff_requirements, assisting_surgeon_ids, pre_op_diagnosis, notes,
	patient_preferences, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var (
		c         Case
		staffJSON []byte
		prefsJSON []byte
		assisting []uuid.UUID
		equipment []string
	)
	err := row.Scan(&c.ID, &c.PatientID, &c.PatientName, &c.PrimarySurgeonID, &c.PrimarySurgeonName,
		&c.ProcedureCode, &c.ProcedureName, &c.ScheduledDate, &c.EstimatedStartTime, &c.EstimatedEndTime,
		&c.EstimatedDuration, &c.ActualStartTime, &c.ActualEndTime, &c.ActualDuration, &c.Priority, &c.Status,
		&c.AnesthesiaType, &c.OperatingRoomID, &c.OperatingRoomName, &c.BlockID, &c.Laterality,
		&equipment, &staffJSON, &assisting, &c.PreOpDiagnosis, &c.Notes,
		&prefsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.SpecialEquipment = equipment
	if c.SpecialEquipment == nil {
		c.SpecialEquipment = []string{}
	}
	c.AssistingSurgeonIDs = assisting
	if c.AssistingSurgeonIDs == nil {
		c.AssistingSurgeonIDs = []uuid.UUID{}
	}
	if len(staffJSON) > 0 {
		var sr StaffRequirements
		if err := json.Unmarshal(staffJSON, &sr); err != nil {
			return nil, fmt.Errorf("decode staff requirements: %w", err)
		}
		c.StaffRequirements = &sr
	}
	if len(prefsJSON) > 0 {
		var p Preferences
		if err := json.Unmarshal(prefsJSON, &p); err != nil {
			return nil, fmt.Errorf("decode patient preferences: %w", err)
		}
		c.PatientPreferences = &p
	}
	return &c, nil
}

func caseJSONCols(c *Case) (staff, prefs []byte, err error) {
	if c.StaffRequirements != nil {
		if staff, err = json.Marshal(c.StaffRequirements); err != nil {
			return nil, nil, fmt.Errorf("encode staff requirements: %w", err)
		}
	}
	if c.PatientPreferences != nil {
		if prefs, err = json.Marshal(c.PatientPreferences); err != nil {
			return nil, nil, fmt.Errorf("encode patient preferences: %w", err)
		}
	}
	return staff, prefs, nil
}

func (r *caseRepoPG) Create(ctx context.Context, c *Case) error {
	staff, prefs, err := caseJSONCols(c)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO surgical_case (id, patient_id, patient_name, primary_surgeon_id, primary_surgeon_name,
			procedure_code, procedure_name, scheduled_date, estimated_start_time, estimated_end_time,
			estimated_duration, actual_start_time, actual_end_time, actual_duration, priority, status,
			anesthesia_type, operating_room_id, operating_room_name, block_id, laterality,
			special_equipment, staff_requirements, assisting_surgeon_ids, pre_op_diagnosis, notes,
			patient_preferences, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)`,
		c.ID, c.PatientID, c.PatientName, c.PrimarySurgeonID, c.PrimarySurgeonName,
		c.ProcedureCode, c.ProcedureName, c.ScheduledDate, c.EstimatedStartTime, c.EstimatedEndTime,
		c.EstimatedDuration, c.ActualStartTime, c.ActualEndTime, c.ActualDuration, c.Priority, c.Status,
		c.AnesthesiaType, c.OperatingRoomID, c.OperatingRoomName, c.BlockID, c.Laterality,
		c.SpecialEquipment, staff, c.AssistingSurgeonIDs, c.PreOpDiagnosis, c.Notes,
		prefs, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM surgical_case WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("surgical case %s", id)
	}
	return c, err
}

func (r *caseRepoPG) Update(ctx context.Context, c *Case) error {
	staff, prefs, err := caseJSONCols(c)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE surgical_case SET
			scheduled_date=$2, estimated_start_time=$3, estimated_end_time=$4, estimated_duration=$5,
			actual_start_time=$6, actual_end_time=$7, actual_duration=$8, priority=$9, status=$10,
			anesthesia_type=$11, operating_room_id=$12, operating_room_name=$13, block_id=$14,
			laterality=$15, special_equipment=$16, staff_requirements=$17, assisting_surgeon_ids=$18,
			pre_op_diagnosis=$19, notes=$20, patient_preferences=$21, updated_at=$22
		WHERE id = $1`,
		c.ID, c.ScheduledDate, c.EstimatedStartTime, c.EstimatedEndTime, c.EstimatedDuration,
		c.ActualStartTime, c.ActualEndTime, c.ActualDuration, c.Priority, c.Status,
		c.AnesthesiaType, c.OperatingRoomID, c.OperatingRoomName, c.BlockID,
		c.Laterality, c.SpecialEquipment, staff, c.AssistingSurgeonIDs,
		c.PreOpDiagnosis, c.Notes, prefs, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("surgical case %s", c.ID)
	}
	return nil
}

func (r *caseRepoPG) List(ctx context.Context, f CaseFilters) ([]*Case, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Date != nil {
		where = append(where, "scheduled_date = "+arg(*f.Date))
	}
	if f.From != nil {
		where = append(where, "scheduled_date >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "scheduled_date <= "+arg(*f.To))
	}
	if f.RoomID != "" {
		where = append(where, "operating_room_id = "+arg(f.RoomID))
	}
	if f.SurgeonID != uuid.Nil {
		where = append(where, "primary_surgeon_id = "+arg(f.SurgeonID))
	}
	if f.PatientID != uuid.Nil {
		where = append(where, "patient_id = "+arg(f.PatientID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+caseCols+` FROM surgical_case
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY scheduled_date, estimated_start_time NULLS LAST, created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *caseRepoPG) PatientCaseCounts(ctx context.Context, patientID uuid.UUID) (int, int, error) {
	var cancelled, total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'cancelled'), COUNT(*)
		FROM surgical_case WHERE patient_id = $1`, patientID).Scan(&cancelled, &total)
	return cancelled, total, err
}

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository { return &historyRepoPG{pool: pool} }

func (r *historyRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *historyRepoPG) RecordDuration(ctx context.Context, caseID uuid.UUID, procedureCode string, surgeonID uuid.UUID, minutes int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO case_duration_history (case_id, procedure_code, surgeon_id, duration_minutes, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id) DO UPDATE
		SET procedure_code = EXCLUDED.procedure_code,
			surgeon_id = EXCLUDED.surgeon_id,
			duration_minutes = EXCLUDED.duration_minutes,
			recorded_at = EXCLUDED.recorded_at`,
		caseID, procedureCode, surgeonID, minutes, time.Now())
	return err
}

func (r *historyRepoPG) Samples(ctx context.Context, procedureCode string, surgeonID uuid.UUID) ([]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT duration_minutes FROM case_duration_history
		WHERE procedure_code = $1 AND surgeon_id = $2
		ORDER BY recorded_at`, procedureCode, surgeonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
