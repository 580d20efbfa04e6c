package billing

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

const invoiceCols = `id, practice_id, patient_id, number, status, total_cents,
	issued_at, paid_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, practiceID uuid.UUID, inv *Invoice) error {
	inv.ID = uuid.New()
	inv.PracticeID = practiceID
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, practice_id, patient_id, number, status, total_cents, issued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		inv.ID, inv.PracticeID, inv.PatientID, inv.Number, inv.Status, inv.TotalCents, inv.IssuedAt,
	)
	if err != nil {
		return err
	}
	for _, item := range inv.Items {
		item.ID = uuid.New()
		item.InvoiceID = inv.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO invoice_item (id, invoice_id, code, description, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, item.InvoiceID, item.Code, item.Description, item.Quantity, item.UnitPriceCents,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE practice_id = $1 AND id = $2`, practiceID, id))
	if err != nil {
		return nil, err
	}
	inv.Items, err = r.GetItems(ctx, practiceID, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repoPG) List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoice WHERE practice_id = $1`, practiceID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE practice_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	invoices, err := collectInvoices(rows)
	return invoices, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoice WHERE practice_id = $1 AND patient_id = $2`,
		practiceID, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoice
		 WHERE practice_id = $1 AND patient_id = $2
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		practiceID, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	invoices, err := collectInvoices(rows)
	return invoices, total, err
}

func (r *repoPG) UpdateStatus(ctx context.Context, practiceID uuid.UUID, inv *Invoice) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoice SET status=$3, issued_at=$4, paid_at=$5, updated_at=NOW()
		WHERE practice_id = $1 AND id = $2`,
		practiceID, inv.ID, inv.Status, inv.IssuedAt, inv.PaidAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) GetItems(ctx context.Context, practiceID, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT i.id, i.invoice_id, i.code, i.description, i.quantity, i.unit_price_cents
		FROM invoice_item i
		JOIN invoice inv ON inv.id = i.invoice_id
		WHERE inv.practice_id = $1 AND i.invoice_id = $2
		ORDER BY i.code`, practiceID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Code, &item.Description,
			&item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.PracticeID, &inv.PatientID, &inv.Number, &inv.Status, &inv.TotalCents,
		&inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func collectInvoices(rows pgx.Rows) ([]*Invoice, error) {
	var invoices []*Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(
			&inv.ID, &inv.PracticeID, &inv.PatientID, &inv.Number, &inv.Status, &inv.TotalCents,
			&inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}
