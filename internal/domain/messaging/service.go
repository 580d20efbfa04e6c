package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/praktijk/praktijk/internal/platform/auth"
)

const maxBodyLen = 10000

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateThread(ctx context.Context, practiceID uuid.UUID, t *Thread, body string) (*Message, error) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return nil, fmt.Errorf("no authenticated principal")
	}
	if t.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if strings.TrimSpace(t.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	// Patients can only open threads about themselves.
	if p.Role == auth.RolePatient && (p.PatientID == nil || *p.PatientID != t.PatientID) {
		return nil, pgx.ErrNoRows
	}

	if err := s.repo.CreateThread(ctx, practiceID, t); err != nil {
		return nil, err
	}
	m := &Message{
		ThreadID:   t.ID,
		SenderID:   p.UserID,
		SenderRole: string(p.Role),
		Body:       body,
	}
	if err := s.repo.AddMessage(ctx, practiceID, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetThread(ctx context.Context, practiceID, id uuid.UUID) (*Thread, error) {
	t, err := s.repo.GetThread(ctx, practiceID, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListThreads(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Thread, int, error) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return nil, 0, fmt.Errorf("no authenticated principal")
	}
	// Patient principals only ever see their own threads.
	if p.Role == auth.RolePatient {
		if p.PatientID == nil {
			return nil, 0, fmt.Errorf("patient principal without patient_id")
		}
		return s.repo.ListThreadsByPatient(ctx, practiceID, *p.PatientID, limit, offset)
	}
	return s.repo.ListThreads(ctx, practiceID, limit, offset)
}

func (s *Service) ListThreadsByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Thread, int, error) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return nil, 0, fmt.Errorf("no authenticated principal")
	}
	if p.Role == auth.RolePatient && (p.PatientID == nil || *p.PatientID != patientID) {
		return nil, 0, pgx.ErrNoRows
	}
	return s.repo.ListThreadsByPatient(ctx, practiceID, patientID, limit, offset)
}

func (s *Service) PostMessage(ctx context.Context, practiceID, threadID uuid.UUID, body string) (*Message, error) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return nil, fmt.Errorf("no authenticated principal")
	}
	if err := validateBody(body); err != nil {
		return nil, err
	}
	t, err := s.repo.GetThread(ctx, practiceID, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}

	m := &Message{
		ThreadID:   t.ID,
		SenderID:   p.UserID,
		SenderRole: string(p.Role),
		Body:       body,
	}
	if err := s.repo.AddMessage(ctx, practiceID, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, practiceID, threadID uuid.UUID) ([]*Message, error) {
	t, err := s.repo.GetThread(ctx, practiceID, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, practiceID, threadID)
}

func (s *Service) MarkRead(ctx context.Context, practiceID, threadID, messageID uuid.UUID) error {
	t, err := s.repo.GetThread(ctx, practiceID, threadID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, t); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, practiceID, threadID, messageID)
}

// authorize hides threads that do not belong to a patient principal. The
// mismatch surfaces as not-found, same as a cross-practice lookup.
func (s *Service) authorize(ctx context.Context, t *Thread) error {
	p := auth.PrincipalFromContext(ctx)
	if p == nil {
		return fmt.Errorf("no authenticated principal")
	}
	if p.Role == auth.RolePatient && (p.PatientID == nil || *p.PatientID != t.PatientID) {
		return pgx.ErrNoRows
	}
	return nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: message body is required", ErrValidation)
	}
	if len(body) > maxBodyLen {
		return fmt.Errorf("%w: message body exceeds %d characters", ErrValidation, maxBodyLen)
	}
	return nil
}
