package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PracticeID         uuid.UUID `db:"practice_id" json:"practice_id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	DentistID          uuid.UUID `db:"dentist_id" json:"dentist_id"`
	StartsAt           time.Time `db:"starts_at" json:"starts_at"`
	EndsAt             time.Time `db:"ends_at" json:"ends_at"`
	Status             string    `db:"status" json:"status"`
	Treatment          *string   `db:"treatment" json:"treatment,omitempty"`
	Notes              *string   `db:"notes" json:"notes,omitempty"`
	CancellationReason *string   `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
