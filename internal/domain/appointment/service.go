package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

var validStatuses = map[string]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateAppointment(ctx context.Context, practiceID uuid.UUID, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if a.DentistID == uuid.Nil {
		return fmt.Errorf("%w: dentist_id is required", ErrValidation)
	}
	if a.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at is required", ErrValidation)
	}
	if a.EndsAt.IsZero() {
		a.EndsAt = a.StartsAt.Add(30 * time.Minute)
	}
	if !a.EndsAt.After(a.StartsAt) {
		return fmt.Errorf("%w: ends_at must be after starts_at", ErrValidation)
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("%w: invalid status: %s", ErrValidation, a.Status)
	}
	return s.repo.Create(ctx, practiceID, a)
}

func (s *Service) GetAppointment(ctx context.Context, practiceID, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, practiceID, id)
}

func (s *Service) ListAppointments(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, practiceID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, practiceID, patientID, limit, offset)
}

func (s *Service) ListByDentist(ctx context.Context, practiceID, dentistID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDentist(ctx, practiceID, dentistID, limit, offset)
}

func (s *Service) ListByDay(ctx context.Context, practiceID uuid.UUID, day time.Time) ([]*Appointment, error) {
	return s.repo.ListByDay(ctx, practiceID, day)
}

func (s *Service) UpdateAppointment(ctx context.Context, practiceID uuid.UUID, a *Appointment) error {
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("%w: invalid status: %s", ErrValidation, a.Status)
	}
	return s.repo.Update(ctx, practiceID, a)
}

// UpdateStatus moves an appointment through its lifecycle. Cancellation
// requires a reason; completed and cancelled are terminal.
func (s *Service) UpdateStatus(ctx context.Context, practiceID, id uuid.UUID, status, reason string) error {
	if !validStatuses[status] {
		return fmt.Errorf("%w: invalid status: %s", ErrValidation, status)
	}

	a, err := s.repo.GetByID(ctx, practiceID, id)
	if err != nil {
		return err
	}

	if a.Status == StatusCompleted || a.Status == StatusCancelled {
		return fmt.Errorf("%w: appointment is already %s", ErrValidation, a.Status)
	}

	if status == StatusCancelled {
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("%w: cancellation requires a reason", ErrValidation)
		}
		a.CancellationReason = &reason
	}

	a.Status = status
	return s.repo.Update(ctx, practiceID, a)
}
