package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice maps to the invoice table. PatientBSN carries the masked identifier
// on read paths; the plaintext never reaches this package.
type Invoice struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PracticeID uuid.UUID  `db:"practice_id" json:"practice_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Number     string     `db:"number" json:"number"`
	Status     string     `db:"status" json:"status"`
	TotalCents int64      `db:"total_cents" json:"total_cents"`
	IssuedAt   *time.Time `db:"issued_at" json:"issued_at,omitempty"`
	PaidAt     *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	PatientBSN string         `db:"-" json:"patient_bsn,omitempty"`
	Items      []*InvoiceItem `db:"-" json:"items,omitempty"`
}

// InvoiceItem maps to the invoice_item table.
type InvoiceItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	InvoiceID      uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Code           string    `db:"code" json:"code"`
	Description    string    `db:"description" json:"description"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
}

// LineTotalCents returns the item total.
func (i *InvoiceItem) LineTotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// ComputeTotal sums the line items. Totals are always derived server-side;
// client-supplied totals are ignored.
func (inv *Invoice) ComputeTotal() int64 {
	var total int64
	for _, item := range inv.Items {
		total += item.LineTotalCents()
	}
	return total
}
