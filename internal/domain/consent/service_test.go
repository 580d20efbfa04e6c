package consent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	consents map[uuid.UUID]*Consent
}

func newMockRepo() *mockRepo {
	return &mockRepo{consents: make(map[uuid.UUID]*Consent)}
}

func (m *mockRepo) Create(_ context.Context, practiceID uuid.UUID, c *Consent) error {
	c.ID = uuid.New()
	c.PracticeID = practiceID
	cp := *c
	m.consents[c.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, practiceID, id uuid.UUID) (*Consent, error) {
	c, ok := m.consents[id]
	if !ok || c.PracticeID != practiceID {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, practiceID, patientID uuid.UUID) ([]*Consent, error) {
	var out []*Consent
	for _, c := range m.consents {
		if c.PracticeID == practiceID && c.PatientID == patientID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Withdraw(_ context.Context, practiceID uuid.UUID, c *Consent) error {
	existing, ok := m.consents[c.ID]
	if !ok || existing.PracticeID != practiceID || existing.WithdrawnAt != nil {
		return pgx.ErrNoRows
	}
	existing.WithdrawnAt = c.WithdrawnAt
	return nil
}

func TestGrantConsent(t *testing.T) {
	svc := NewService(newMockRepo())
	practiceID := uuid.New()

	c := &Consent{PatientID: uuid.New(), Kind: KindTreatment, SignedBy: "J. de Vries"}
	if err := svc.GrantConsent(context.Background(), practiceID, c); err != nil {
		t.Fatalf("GrantConsent() error = %v", err)
	}
	if c.GrantedAt.IsZero() {
		t.Error("expected granted_at to default to now")
	}
	if !c.Active() {
		t.Error("new consent should be active")
	}
}

func TestGrantConsentValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	practiceID := uuid.New()

	tests := []struct {
		name    string
		consent Consent
	}{
		{"missing patient", Consent{Kind: KindTreatment, SignedBy: "x"}},
		{"unknown kind", Consent{PatientID: uuid.New(), Kind: "telepathy", SignedBy: "x"}},
		{"missing signer", Consent{PatientID: uuid.New(), Kind: KindResearch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.consent
			err := svc.GrantConsent(context.Background(), practiceID, &c)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestWithdrawConsent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	practiceID := uuid.New()
	ctx := context.Background()

	c := &Consent{PatientID: uuid.New(), Kind: KindDataSharing, SignedBy: "J. de Vries"}
	if err := svc.GrantConsent(ctx, practiceID, c); err != nil {
		t.Fatalf("GrantConsent() error = %v", err)
	}

	if err := svc.WithdrawConsent(ctx, practiceID, c.ID); err != nil {
		t.Fatalf("WithdrawConsent() error = %v", err)
	}

	// The row stays; it just carries the withdrawal timestamp.
	got, err := svc.GetConsent(ctx, practiceID, c.ID)
	if err != nil {
		t.Fatalf("GetConsent() after withdrawal: %v", err)
	}
	if got.WithdrawnAt == nil {
		t.Error("expected withdrawn_at to be set")
	}
	if got.Active() {
		t.Error("withdrawn consent should not be active")
	}

	if err := svc.WithdrawConsent(ctx, practiceID, c.ID); !errors.Is(err, ErrAlreadyWithdrawn) {
		t.Errorf("second withdrawal error = %v, want ErrAlreadyWithdrawn", err)
	}
}

func TestWithdrawConsentCrossPractice(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	c := &Consent{PatientID: uuid.New(), Kind: KindTreatment, SignedBy: "J. de Vries"}
	if err := svc.GrantConsent(ctx, uuid.New(), c); err != nil {
		t.Fatalf("GrantConsent() error = %v", err)
	}
	if err := svc.WithdrawConsent(ctx, uuid.New(), c.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("error = %v, want pgx.ErrNoRows", err)
	}
}

func TestListByPatient(t *testing.T) {
	svc := NewService(newMockRepo())
	practiceID := uuid.New()
	patientID := uuid.New()
	ctx := context.Background()

	for _, kind := range []string{KindTreatment, KindMarketing} {
		c := &Consent{PatientID: patientID, Kind: kind, SignedBy: "J. de Vries"}
		if err := svc.GrantConsent(ctx, practiceID, c); err != nil {
			t.Fatalf("GrantConsent() error = %v", err)
		}
	}

	consents, err := svc.ListByPatient(ctx, practiceID, patientID)
	if err != nil {
		t.Fatalf("ListByPatient() error = %v", err)
	}
	if len(consents) != 2 {
		t.Errorf("got %d consents, want 2", len(consents))
	}
}
