package clinical

import (
	"context"

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

const entryCols = `id, practice_id, patient_id, author_id, kind, tooth_element, surfaces,
	status, note, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, practiceID uuid.UUID, e *ChartEntry) error {
	e.ID = uuid.New()
	e.PracticeID = practiceID
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO chart_entry (id, practice_id, patient_id, author_id, kind, tooth_element, surfaces, status, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.PracticeID, e.PatientID, e.AuthorID, e.Kind, e.ToothElement, e.Surfaces, e.Status, e.Note,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, practiceID, id uuid.UUID) (*ChartEntry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM chart_entry WHERE practice_id = $1 AND id = $2`, practiceID, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*ChartEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM chart_entry WHERE practice_id = $1 AND patient_id = $2`,
		practiceID, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM chart_entry
		 WHERE practice_id = $1 AND patient_id = $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		practiceID, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*ChartEntry
	for rows.Next() {
		var e ChartEntry
		if err := rows.Scan(
			&e.ID, &e.PracticeID, &e.PatientID, &e.AuthorID, &e.Kind, &e.ToothElement,
			&e.Surfaces, &e.Status, &e.Note, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, practiceID uuid.UUID, e *ChartEntry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE chart_entry SET
			kind=$3, tooth_element=$4, surfaces=$5, status=$6, note=$7, updated_at=NOW()
		WHERE practice_id = $1 AND id = $2`,
		practiceID, e.ID, e.Kind, e.ToothElement, e.Surfaces, e.Status, e.Note,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanEntry(row pgx.Row) (*ChartEntry, error) {
	var e ChartEntry
	err := row.Scan(
		&e.ID, &e.PracticeID, &e.PatientID, &e.AuthorID, &e.Kind, &e.ToothElement,
		&e.Surfaces, &e.Status, &e.Note, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
