package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
	StatusVoid  = "void"
)

// statusTransitions is the invoice lifecycle: draft -> sent -> paid, with
// void reachable from draft and sent.
// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

var statusTransitions = map[string][]string{
	StatusDraft: {StatusSent, StatusVoid},
	StatusSent:  {StatusPaid, StatusVoid},
}

// PatientDirectory resolves the masked identifier shown on invoice payloads.
// Implemented by the patient service; billing never sees plaintext.
type PatientDirectory interface {
	MaskedBSN(ctx context.Context, practiceID, patientID uuid.UUID) (string, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
}

func NewService(repo Repository, patients PatientDirectory) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) CreateInvoice(ctx context.Context, practiceID uuid.UUID, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if len(inv.Items) == 0 {
		return fmt.Errorf("%w: invoice requires at least one line item", ErrValidation)
	}
	for _, item := range inv.Items {
		if item.Code == "" {
			return fmt.Errorf("%w: item code is required", ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item quantity must be positive", ErrValidation)
		}
		if item.UnitPriceCents < 0 {
			return fmt.Errorf("%w: item unit price must not be negative", ErrValidation)
		}
	}
	if inv.Number == "" {
		inv.Number = newInvoiceNumber()
	}
	inv.Status = StatusDraft
	inv.TotalCents = inv.ComputeTotal()

	if err := s.repo.Create(ctx, practiceID, inv); err != nil {
		return err
	}
	return s.decorate(ctx, practiceID, inv)
}

func (s *Service) GetInvoice(ctx context.Context, practiceID, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, practiceID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, practiceID, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	invoices, total, err := s.repo.List(ctx, practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, inv := range invoices {
		if err := s.decorate(ctx, practiceID, inv); err != nil {
			return nil, 0, err
		}
	}
	return invoices, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	invoices, total, err := s.repo.ListByPatient(ctx, practiceID, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, inv := range invoices {
		if err := s.decorate(ctx, practiceID, inv); err != nil {
			return nil, 0, err
		}
	}
	return invoices, total, nil
}

// UpdateStatus moves an invoice through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, practiceID, id uuid.UUID, status string) error {
	inv, err := s.repo.GetByID(ctx, practiceID, id)
	if err != nil {
		return err
	}

	allowed := false
	for _, next := range statusTransitions[inv.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: cannot move invoice from %s to %s", ErrValidation, inv.Status, status)
	}

	now := time.Now().UTC()
	switch status {
	case StatusSent:
		inv.IssuedAt = &now
	case StatusPaid:
		inv.PaidAt = &now
	}
	inv.Status = status
	return s.repo.UpdateStatus(ctx, practiceID, inv)
}

// decorate fills the masked patient identifier on the payload.
func (s *Service) decorate(ctx context.Context, practiceID uuid.UUID, inv *Invoice) error {
	if s.patients == nil {
		return nil
	}
	masked, err := s.patients.MaskedBSN(ctx, practiceID, inv.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient identifier: %w", err)
	}
	inv.PatientBSN = masked
	return nil
}

func newInvoiceNumber() string {
	id := strings.ToUpper(uuid.New().String())
	return fmt.Sprintf("INV-%d-%s", time.Now().Year(), id[:8])
}
