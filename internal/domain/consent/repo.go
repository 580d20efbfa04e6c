package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, practiceID uuid.UUID, c *Consent) error
	GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Consent, error)
	ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID) ([]*Consent, error)
	Withdraw(ctx context.Context, practiceID uuid.UUID, c *Consent) error
}
