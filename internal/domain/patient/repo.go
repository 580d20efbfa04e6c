package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, practiceID uuid.UUID, p *Patient) error
	GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, practiceID uuid.UUID, p *Patient) error
	UpdateBSN(ctx context.Context, practiceID, id uuid.UUID, blob []byte, hash string, keyVersion int) error
	Deactivate(ctx context.Context, practiceID, id uuid.UUID) error
	FindByBSNHash(ctx context.Context, practiceID uuid.UUID, hash string) (*Patient, error)
}
