package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praktijk/praktijk/internal/platform/db"
)

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

type Service struct {
	repo Repository
	pool *pgxpool.Pool
}

func NewService(repo Repository, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, pool: pool}
}

// CreatePractice provisions a new tenant. This always runs in the
// cross-practice scope because the new row does not belong to the caller's
// practice; the handler gates it behind the super_admin role.
func (s *Service) CreatePractice(ctx context.Context, p *Practice) error {
	if err := validate(p); err != nil {
		return err
	}
	return db.WithAllPractices(ctx, s.pool, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
}

func (s *Service) GetPractice(ctx context.Context, id uuid.UUID) (*Practice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdatePractice(ctx context.Context, p *Practice) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeactivatePractice(ctx context.Context, id uuid.UUID) error {
	return db.WithAllPractices(ctx, s.pool, func(ctx context.Context) error {
		return s.repo.Deactivate(ctx, id)
	})
}

// ListAllPractices lists every tenant. Super-admin only; the repo call runs
// with the bypass scope so row-level security does not filter the result.
func (s *Service) ListAllPractices(ctx context.Context, limit, offset int) ([]*Practice, int, error) {
	var (
		practices []*Practice
		total     int
	)
	err := db.WithAllPractices(ctx, s.pool, func(ctx context.Context) error {
		var err error
		practices, total, err = s.repo.ListAll(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return practices, total, nil
}

func validate(p *Practice) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	return nil
}
