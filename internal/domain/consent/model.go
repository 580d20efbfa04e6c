package consent

import (
	"time"

	"github.com/google/uuid"
)

// Consent maps to the consent table. Withdrawal never deletes the row; the
// record keeps its grant history with withdrawn_at filled in.
type Consent struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PracticeID  uuid.UUID  `db:"practice_id" json:"practice_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Kind        string     `db:"kind" json:"kind"`
	GrantedAt   time.Time  `db:"granted_at" json:"granted_at"`
	WithdrawnAt *time.Time `db:"withdrawn_at" json:"withdrawn_at,omitempty"`
	SignedBy    string     `db:"signed_by" json:"signed_by"`
	Notes       string     `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the consent is currently in force.
func (c *Consent) Active() bool {
	return c.WithdrawnAt == nil
}
