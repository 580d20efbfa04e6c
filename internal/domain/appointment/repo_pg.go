package appointment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praktijk/praktijk/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if q := db.FromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const apptCols = `id, practice_id, patient_id, dentist_id, starts_at, ends_at, status,
	treatment, notes, cancellation_reason, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, practiceID uuid.UUID, a *Appointment) error {
	a.ID = uuid.New()
	a.PracticeID = practiceID
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, practice_id, patient_id, dentist_id, starts_at, ends_at, status, treatment, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.PracticeID, a.PatientID, a.DentistID, a.StartsAt, a.EndsAt, a.Status, a.Treatment, a.Notes,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE practice_id = $1 AND id = $2`, practiceID, id))
}

func (r *repoPG) List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listWhere(ctx, `practice_id = $1`, []any{practiceID}, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listWhere(ctx, `practice_id = $1 AND patient_id = $2`, []any{practiceID, patientID}, limit, offset)
}

func (r *repoPG) ListByDentist(ctx context.Context, practiceID, dentistID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listWhere(ctx, `practice_id = $1 AND dentist_id = $2`, []any{practiceID, dentistID}, limit, offset)
}

func (r *repoPG) listWhere(ctx context.Context, where string, args []any, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointment WHERE ` + where +
		` ORDER BY starts_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	appts, err := collectAppts(rows)
	return appts, total, err
}

func (r *repoPG) ListByDay(ctx context.Context, practiceID uuid.UUID, day time.Time) ([]*Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE practice_id = $1 AND starts_at >= $2 AND starts_at < $3
		 ORDER BY starts_at`,
		practiceID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppts(rows)
}

func (r *repoPG) Update(ctx context.Context, practiceID uuid.UUID, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET
			patient_id=$3, dentist_id=$4, starts_at=$5, ends_at=$6, status=$7,
			treatment=$8, notes=$9, cancellation_reason=$10, updated_at=NOW()
		WHERE practice_id = $1 AND id = $2`,
		practiceID, a.ID, a.PatientID, a.DentistID, a.StartsAt, a.EndsAt, a.Status,
		a.Treatment, a.Notes, a.CancellationReason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.PracticeID, &a.PatientID, &a.DentistID, &a.StartsAt, &a.EndsAt, &a.Status,
		&a.Treatment, &a.Notes, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAppts(rows pgx.Rows) ([]*Appointment, error) {
	var appts []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.PracticeID, &a.PatientID, &a.DentistID, &a.StartsAt, &a.EndsAt, &a.Status,
			&a.Treatment, &a.Notes, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}
