package staff

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

const memberCols = `id, practice_id, first_name, last_name, email, role, big_number,
	active, password_hash, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, practiceID uuid.UUID, m *Member) error {
	m.ID = uuid.New()
	m.PracticeID = practiceID
	m.Active = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff (id, practice_id, first_name, last_name, email, role, big_number, active, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.ID, m.PracticeID, m.FirstName, m.LastName, m.Email, m.Role, m.BIGNumber, m.Active, m.PasswordHash,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Member, error) {
	return scanMember(r.conn(ctx).QueryRow(ctx,
		`SELECT `+memberCols+` FROM staff WHERE practice_id = $1 AND id = $2`, practiceID, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, practiceID uuid.UUID, email string) (*Member, error) {
	return scanMember(r.conn(ctx).QueryRow(ctx,
		`SELECT `+memberCols+` FROM staff WHERE practice_id = $1 AND email = $2`, practiceID, email))
}

func (r *repoPG) List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Member, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM staff WHERE practice_id = $1`, practiceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+memberCols+` FROM staff WHERE practice_id = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(
			&m.ID, &m.PracticeID, &m.FirstName, &m.LastName, &m.Email, &m.Role,
			&m.BIGNumber, &m.Active, &m.PasswordHash, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		members = append(members, &m)
	}
	return members, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, practiceID uuid.UUID, m *Member) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff SET
			first_name=$3, last_name=$4, email=$5, role=$6, big_number=$7, updated_at=NOW()
		WHERE practice_id = $1 AND id = $2`,
		practiceID, m.ID, m.FirstName, m.LastName, m.Email, m.Role, m.BIGNumber,
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
		`UPDATE staff SET active = false, updated_at = NOW() WHERE practice_id = $1 AND id = $2`,
		practiceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) SetPasswordHash(ctx context.Context, practiceID, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE staff SET password_hash = $3, updated_at = NOW() WHERE practice_id = $1 AND id = $2`,
		practiceID, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.PracticeID, &m.FirstName, &m.LastName, &m.Email, &m.Role,
		&m.BIGNumber, &m.Active, &m.PasswordHash, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
