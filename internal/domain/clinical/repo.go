package clinical

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, practiceID uuid.UUID, e *ChartEntry) error
	GetByID(ctx context.Context, practiceID, id uuid.UUID) (*ChartEntry, error)
	ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*ChartEntry, int, error)
	Update(ctx context.Context, practiceID uuid.UUID, e *ChartEntry) error
}
