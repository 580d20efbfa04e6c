package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, practiceID uuid.UUID, m *Member) error
	GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Member, error)
	GetByEmail(ctx context.Context, practiceID uuid.UUID, email string) (*Member, error)
	List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Member, int, error)
	Update(ctx context.Context, practiceID uuid.UUID, m *Member) error
	Deactivate(ctx context.Context, practiceID, id uuid.UUID) error
	SetPasswordHash(ctx context.Context, practiceID, id uuid.UUID, hash string) error
}
