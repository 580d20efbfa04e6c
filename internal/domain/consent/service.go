package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Consent kinds recognised by the intake forms.
const (
	KindTreatment   = "treatment"
	KindDataSharing = "data_sharing"
	KindResearch    = "research"
	KindMarketing   = "marketing"
)

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

var ErrAlreadyWithdrawn = errors.New("consent already withdrawn")

var validKinds = map[string]bool{
	KindTreatment:   true,
	KindDataSharing: true,
	KindResearch:    true,
	KindMarketing:   true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GrantConsent(ctx context.Context, practiceID uuid.UUID, c *Consent) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if !validKinds[c.Kind] {
		return fmt.Errorf("%w: unknown consent kind: %s", ErrValidation, c.Kind)
	}
	if c.SignedBy == "" {
		return fmt.Errorf("%w: signed_by is required", ErrValidation)
	}
	if c.GrantedAt.IsZero() {
		c.GrantedAt = time.Now().UTC()
	}
	c.WithdrawnAt = nil
	return s.repo.Create(ctx, practiceID, c)
}

func (s *Service) GetConsent(ctx context.Context, practiceID, id uuid.UUID) (*Consent, error) {
	return s.repo.GetByID(ctx, practiceID, id)
}

func (s *Service) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID) ([]*Consent, error) {
	return s.repo.ListByPatient(ctx, practiceID, patientID)
}

// WithdrawConsent marks the consent withdrawn. The row stays in place so the
// grant history remains auditable.
func (s *Service) WithdrawConsent(ctx context.Context, practiceID, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, practiceID, id)
	if err != nil {
		return err
	}
	if c.WithdrawnAt != nil {
		return ErrAlreadyWithdrawn
	}
	now := time.Now().UTC()
	c.WithdrawnAt = &now
	return s.repo.Withdraw(ctx, practiceID, c)
}
