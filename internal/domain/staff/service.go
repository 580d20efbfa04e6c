package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/praktijk/praktijk/internal/platform/auth"
)

const minPasswordLen = 12

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateMember(ctx context.Context, practiceID uuid.UUID, m *Member, password string) error {
	if err := validateMember(m); err != nil {
		return err
	}
	if password != "" {
		hash, err := s.hashPassword(password)
		if err != nil {
			return err
		}
		m.PasswordHash = hash
	}
	return s.repo.Create(ctx, practiceID, m)
}

func (s *Service) GetMember(ctx context.Context, practiceID, id uuid.UUID) (*Member, error) {
	return s.repo.GetByID(ctx, practiceID, id)
}

func (s *Service) GetMemberByEmail(ctx context.Context, practiceID uuid.UUID, email string) (*Member, error) {
	return s.repo.GetByEmail(ctx, practiceID, email)
}

func (s *Service) ListMembers(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Member, int, error) {
	return s.repo.List(ctx, practiceID, limit, offset)
}

func (s *Service) UpdateMember(ctx context.Context, practiceID uuid.UUID, m *Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	return s.repo.Update(ctx, practiceID, m)
}

// DeactivateMember disables a staff account. Staff rows are never hard
// deleted; appointments and audit entries keep referencing them.
func (s *Service) DeactivateMember(ctx context.Context, practiceID, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, practiceID, id)
}

func (s *Service) SetPassword(ctx context.Context, practiceID, id uuid.UUID, password string) error {
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, practiceID, id, hash)
}

// VerifyPassword checks a login attempt against the stored hash. Deactivated
// members never authenticate.
func (s *Service) VerifyPassword(ctx context.Context, practiceID uuid.UUID, email, password string) (*Member, error) {
	m, err := s.repo.GetByEmail(ctx, practiceID, email)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, fmt.Errorf("account is deactivated")
	}
	ok, err := auth.VerifyPassword(password, m.PasswordHash)
	if err != nil || !ok {
		return nil, fmt.Errorf("invalid credentials")
	}
	return m, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	return auth.HashPassword(password)
}

func validateMember(m *Member) error {
	if strings.TrimSpace(m.FirstName) == "" || strings.TrimSpace(m.LastName) == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	if strings.TrimSpace(m.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !m.Role.Valid() {
		return fmt.Errorf("%w: invalid role: %s", ErrValidation, m.Role)
	}
	if m.Role == auth.RolePatient {
		return fmt.Errorf("%w: patient is not a staff role", ErrValidation)
	}
	return nil
}
