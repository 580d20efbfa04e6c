package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Mock Repository --

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, practiceID uuid.UUID, a *Appointment) error {
	a.ID = uuid.New()
	a.PracticeID = practiceID
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, practiceID, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok || a.PracticeID != practiceID {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) List(_ context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PracticeID == practiceID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PracticeID == practiceID && a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDentist(_ context.Context, practiceID, dentistID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PracticeID == practiceID && a.DentistID == dentistID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDay(_ context.Context, practiceID uuid.UUID, day time.Time) ([]*Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PracticeID == practiceID && !a.StartsAt.Before(start) && a.StartsAt.Before(end) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) Update(_ context.Context, practiceID uuid.UUID, a *Appointment) error {
	existing, ok := m.appointments[a.ID]
	if !ok || existing.PracticeID != practiceID {
		return pgx.ErrNoRows
	}
	m.appointments[a.ID] = a
	return nil
}

// -- Tests --

func validAppointment() *Appointment {
	return &Appointment{
		PatientID: uuid.New(),
		DentistID: uuid.New(),
		StartsAt:  time.Now().Add(24 * time.Hour),
	}
}

func TestCreateAppointment(t *testing.T) {
	svc := NewService(newMockRepo())

	a := validAppointment()
	if err := svc.CreateAppointment(context.Background(), uuid.New(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected default status scheduled, got %s", a.Status)
	}
	if !a.EndsAt.Equal(a.StartsAt.Add(30 * time.Minute)) {
		t.Error("expected 30 minute default duration")
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	tests := []struct {
		name string
		appt *Appointment
	}{
		{"missing patient", &Appointment{DentistID: uuid.New(), StartsAt: time.Now()}},
		{"missing dentist", &Appointment{PatientID: uuid.New(), StartsAt: time.Now()}},
		{"missing start", &Appointment{PatientID: uuid.New(), DentistID: uuid.New()}},
		{"ends before start", &Appointment{
			PatientID: uuid.New(), DentistID: uuid.New(),
			StartsAt: time.Now().Add(time.Hour), EndsAt: time.Now(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateAppointment(context.Background(), uuid.New(), tt.appt)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUpdateStatus_CancelRequiresReason(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	practiceID := uuid.New()

	a := validAppointment()
	svc.CreateAppointment(context.Background(), practiceID, a)

	if err := svc.UpdateStatus(context.Background(), practiceID, a.ID, StatusCancelled, ""); err == nil {
		t.Error("expected error for cancellation without reason")
	}

	if err := svc.UpdateStatus(context.Background(), practiceID, a.ID, StatusCancelled, "patient is ill"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.CancellationReason == nil || *a.CancellationReason != "patient is ill" {
		t.Error("expected cancellation reason to be stored")
	}
}

func TestUpdateStatus_TerminalStates(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	practiceID := uuid.New()

	a := validAppointment()
	svc.CreateAppointment(context.Background(), practiceID, a)
	svc.UpdateStatus(context.Background(), practiceID, a.ID, StatusCompleted, "")

	if err := svc.UpdateStatus(context.Background(), practiceID, a.ID, StatusConfirmed, ""); err == nil {
		t.Error("expected error when reopening a completed appointment")
	}
}

func TestUpdateStatus_CrossPracticeNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	a := validAppointment()
	svc.CreateAppointment(context.Background(), uuid.New(), a)

	err := svc.UpdateStatus(context.Background(), uuid.New(), a.ID, StatusConfirmed, "")
	if err != pgx.ErrNoRows {
		t.Errorf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestListByDay(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	practiceID := uuid.New()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inDay := validAppointment()
	inDay.StartsAt = day.Add(9 * time.Hour)
	otherDay := validAppointment()
	otherDay.StartsAt = day.Add(40 * time.Hour)

	svc.CreateAppointment(context.Background(), practiceID, inDay)
	svc.CreateAppointment(context.Background(), practiceID, otherDay)

	appts, err := svc.ListByDay(context.Background(), practiceID, day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appts) != 1 || appts[0].ID != inDay.ID {
		t.Errorf("expected only the same-day appointment, got %d", len(appts))
	}
}
