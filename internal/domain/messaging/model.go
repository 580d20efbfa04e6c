package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Thread is a conversation between the practice and one patient.
type Thread struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PracticeID uuid.UUID `db:"practice_id" json:"practice_id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Subject    string    `db:"subject" json:"subject"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Message is one entry in a thread. SenderRole records whether the author was
// staff or the patient at the time of writing.
type Message struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ThreadID   uuid.UUID  `db:"thread_id" json:"thread_id"`
	SenderID   uuid.UUID  `db:"sender_id" json:"sender_id"`
	SenderRole string     `db:"sender_role" json:"sender_role"`
	Body       string     `db:"body" json:"body"`
	ReadAt     *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
