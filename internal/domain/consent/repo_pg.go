package consent

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

const consentCols = `id, practice_id, patient_id, kind, granted_at, withdrawn_at,
	signed_by, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, practiceID uuid.UUID, c *Consent) error {
	c.ID = uuid.New()
	c.PracticeID = practiceID
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consent (id, practice_id, patient_id, kind, granted_at, signed_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.PracticeID, c.PatientID, c.Kind, c.GrantedAt, c.SignedBy, c.Notes,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Consent, error) {
	return scanConsent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consentCols+` FROM consent WHERE practice_id = $1 AND id = $2`,
		practiceID, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID) ([]*Consent, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consentCols+` FROM consent
		 WHERE practice_id = $1 AND patient_id = $2
		 ORDER BY granted_at DESC`,
		practiceID, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConsents(rows)
}

func (r *repoPG) Withdraw(ctx context.Context, practiceID uuid.UUID, c *Consent) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consent SET withdrawn_at = $3, updated_at = NOW()
		WHERE practice_id = $1 AND id = $2 AND withdrawn_at IS NULL`,
		practiceID, c.ID, c.WithdrawnAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanConsent(row pgx.Row) (*Consent, error) {
	var c Consent
	err := row.Scan(
		&c.ID, &c.PracticeID, &c.PatientID, &c.Kind, &c.GrantedAt, &c.WithdrawnAt,
		&c.SignedBy, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectConsents(rows pgx.Rows) ([]*Consent, error) {
	var consents []*Consent
	for rows.Next() {
		var c Consent
		if err := rows.Scan(
			&c.ID, &c.PracticeID, &c.PatientID, &c.Kind, &c.GrantedAt, &c.WithdrawnAt,
			&c.SignedBy, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		consents = append(consents, &c)
	}
	return consents, rows.Err()
}
