package practice

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

const practiceCols = `id, name, agb_code, email, phone, address_line, postal_code, city,
	active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Practice) error {
	p.ID = uuid.New()
	p.Active = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practice (id, name, agb_code, email, phone, address_line, postal_code, city, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.AGBCode, p.Email, p.Phone, p.AddressLine, p.PostalCode, p.City, p.Active,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practice, error) {
	return scanPractice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practiceCols+` FROM practice WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Practice) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE practice SET
			name=$2, agb_code=$3, email=$4, phone=$5,
			address_line=$6, postal_code=$7, city=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.AGBCode, p.Email, p.Phone, p.AddressLine, p.PostalCode, p.City,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE practice SET active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListAll(ctx context.Context, limit, offset int) ([]*Practice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM practice`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+practiceCols+` FROM practice ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var practices []*Practice
	for rows.Next() {
		var p Practice
		if err := rows.Scan(
			&p.ID, &p.Name, &p.AGBCode, &p.Email, &p.Phone, &p.AddressLine,
			&p.PostalCode, &p.City, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		practices = append(practices, &p)
	}
	return practices, total, rows.Err()
}

func scanPractice(row pgx.Row) (*Practice, error) {
	var p Practice
	err := row.Scan(
		&p.ID, &p.Name, &p.AGBCode, &p.Email, &p.Phone, &p.AddressLine,
		&p.PostalCode, &p.City, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
