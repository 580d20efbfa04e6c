package practice

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Practice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practice, error)
	Update(ctx context.Context, p *Practice) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	// ListAll is only reachable from the super-admin cross-practice scope.
	ListAll(ctx context.Context, limit, offset int) ([]*Practice, int, error)
}
