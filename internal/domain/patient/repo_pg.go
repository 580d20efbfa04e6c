package patient

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

const patientCols = `id, practice_id, first_name, last_name, date_of_birth, email, phone,
	address_line, postal_code, city, active,
	bsn_encrypted, bsn_hash, bsn_key_version, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, practiceID uuid.UUID, p *Patient) error {
	p.ID = uuid.New()
	p.PracticeID = practiceID
	p.Active = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, practice_id, first_name, last_name, date_of_birth, email, phone,
			address_line, postal_code, city, active,
			bsn_encrypted, bsn_hash, bsn_key_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.PracticeID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone,
		p.AddressLine, p.PostalCode, p.City, p.Active,
		p.BSNEncrypted, p.BSNHash, p.BSNKeyVersion,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE practice_id = $1 AND id = $2`, practiceID, id))
}

func (r *repoPG) List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE practice_id = $1`, practiceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE practice_id = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRow(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, practiceID uuid.UUID, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			first_name=$3, last_name=$4, date_of_birth=$5, email=$6, phone=$7,
			address_line=$8, postal_code=$9, city=$10, updated_at=NOW()
		WHERE practice_id = $1 AND id = $2`,
		practiceID, p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone,
		p.AddressLine, p.PostalCode, p.City,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) UpdateBSN(ctx context.Context, practiceID, id uuid.UUID, blob []byte, hash string, keyVersion int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET bsn_encrypted=$3, bsn_hash=$4, bsn_key_version=$5, updated_at=NOW()
		WHERE practice_id = $1 AND id = $2`,
		practiceID, id, blob, hash, keyVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Deactivate(ctx context.Context, practiceID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET active = false, updated_at = NOW() WHERE practice_id = $1 AND id = $2`,
		practiceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) FindByBSNHash(ctx context.Context, practiceID uuid.UUID, hash string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE practice_id = $1 AND bsn_hash = $2`, practiceID, hash))
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PracticeID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Email, &p.Phone,
		&p.AddressLine, &p.PostalCode, &p.City, &p.Active,
		&p.BSNEncrypted, &p.BSNHash, &p.BSNKeyVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRow(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.PracticeID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Email, &p.Phone,
		&p.AddressLine, &p.PostalCode, &p.City, &p.Active,
		&p.BSNEncrypted, &p.BSNHash, &p.BSNKeyVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
