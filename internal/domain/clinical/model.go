package clinical

import (
	"time"

	"github.com/google/uuid"
)

// ChartEntry maps to the chart_entry table. Entries record exams, treatments
// and notes against a patient; ToothElement carries the ISO 3950 element
// notation ("36") and Surfaces the affected surface codes.
type ChartEntry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PracticeID   uuid.UUID `db:"practice_id" json:"practice_id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID     uuid.UUID `db:"author_id" json:"author_id"`
	Kind         string    `db:"kind" json:"kind"`
	ToothElement *string   `db:"tooth_element" json:"tooth_element,omitempty"`
	Surfaces     []string  `db:"surfaces" json:"surfaces,omitempty"`
	Status       string    `db:"status" json:"status"`
	Note         string    `db:"note" json:"note"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
