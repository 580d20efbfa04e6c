package clinical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/praktijk/praktijk/internal/platform/audit"
	"github.com/praktijk/praktijk/internal/platform/auth"
)

const (
	KindExam      = "exam"
	KindTreatment = "treatment"
	KindNote      = "note"

	StatusDraft   = "draft"
	StatusFinal   = "final"
	StatusAmended = "amended"
)

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

var validKinds = map[string]bool{
	KindExam:      true,
	KindTreatment: true,
	KindNote:      true,
}

var validStatuses = map[string]bool{
	StatusDraft:   true,
	StatusFinal:   true,
	StatusAmended: true,
}

// AuditRecorder is the slice of the audit logger the chart needs. Chart
// updates always leave an old/new snapshot in the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *audit.Entry) error
}

type Service struct {
	repo  Repository
	audit AuditRecorder
}

func NewService(repo Repository, recorder AuditRecorder) *Service {
	return &Service{repo: repo, audit: recorder}
}

func (s *Service) CreateEntry(ctx context.Context, practiceID uuid.UUID, e *ChartEntry) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if e.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: author_id is required", ErrValidation)
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("%w: invalid kind: %s", ErrValidation, e.Kind)
	}
	if strings.TrimSpace(e.Note) == "" {
		return fmt.Errorf("%w: note is required", ErrValidation)
	}
	if e.Status == "" {
		e.Status = StatusDraft
	}
	if !validStatuses[e.Status] {
		return fmt.Errorf("%w: invalid status: %s", ErrValidation, e.Status)
	}
	return s.repo.Create(ctx, practiceID, e)
}

func (s *Service) GetEntry(ctx context.Context, practiceID, id uuid.UUID) (*ChartEntry, error) {
	return s.repo.GetByID(ctx, practiceID, id)
}

func (s *Service) ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*ChartEntry, int, error) {
	return s.repo.ListByPatient(ctx, practiceID, patientID, limit, offset)
}

// UpdateEntry modifies a chart entry and writes an audit record with old and
// new snapshots. Finalized entries become "amended" when changed.
func (s *Service) UpdateEntry(ctx context.Context, practiceID uuid.UUID, e *ChartEntry, ip, userAgent string) error {
	existing, err := s.repo.GetByID(ctx, practiceID, e.ID)
	if err != nil {
		return err
	}

	if e.Kind == "" {
		e.Kind = existing.Kind
	}
	if !validKinds[e.Kind] {
		return fmt.Errorf("%w: invalid kind: %s", ErrValidation, e.Kind)
	}
	if strings.TrimSpace(e.Note) == "" {
		return fmt.Errorf("%w: note is required", ErrValidation)
	}
	if existing.Status == StatusFinal || existing.Status == StatusAmended {
		e.Status = StatusAmended
	} else if e.Status == "" {
		e.Status = existing.Status
	}
	if !validStatuses[e.Status] {
		return fmt.Errorf("%w: invalid status: %s", ErrValidation, e.Status)
	}
	e.PatientID = existing.PatientID
	e.AuthorID = existing.AuthorID

	if err := s.repo.Update(ctx, practiceID, e); err != nil {
		return err
	}

	principal := auth.PrincipalFromContext(ctx)
	entry := &audit.Entry{
		PracticeID:   practiceID,
		Action:       "chart_entry.update",
		ResourceType: "chart_entry",
		ResourceID:   &e.ID,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	if principal != nil {
		entry.ActorID = principal.UserID
		entry.ActorRole = string(principal.Role)
	}
	entry.OldValues, _ = json.Marshal(existing)
	entry.NewValues, _ = json.Marshal(e)
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("audit chart update: %w", err)
	}
	return nil
}
