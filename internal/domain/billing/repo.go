package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, practiceID uuid.UUID, inv *Invoice) error
	GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	UpdateStatus(ctx context.Context, practiceID uuid.UUID, inv *Invoice) error

	GetItems(ctx context.Context, practiceID, invoiceID uuid.UUID) ([]*InvoiceItem, error)
}
