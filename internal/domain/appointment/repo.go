package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, practiceID uuid.UUID, a *Appointment) error
	GetByID(ctx context.Context, practiceID, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDentist(ctx context.Context, practiceID, dentistID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDay(ctx context.Context, practiceID uuid.UUID, day time.Time) ([]*Appointment, error)
	Update(ctx context.Context, practiceID uuid.UUID, a *Appointment) error
}
