package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. The burgerservicenummer is stored only in
// encrypted form; the BSN field carries the masked rendering on read paths and
// is never the plaintext.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PracticeID  uuid.UUID  `db:"practice_id" json:"practice_id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	AddressLine *string    `db:"address_line" json:"address_line,omitempty"`
	PostalCode  *string    `db:"postal_code" json:"postal_code,omitempty"`
	City        *string    `db:"city" json:"city,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// BSN is the masked identifier (***.***.**NN), filled in by the service
	// on reads. It is never bound from request bodies.
	BSN string `db:"-" json:"bsn,omitempty"`

	BSNEncrypted  []byte  `db:"bsn_encrypted" json:"-"`
	BSNHash       *string `db:"bsn_hash" json:"-"`
	BSNKeyVersion *int    `db:"bsn_key_version" json:"-"`
}

// HasBSN reports whether an encrypted identifier is stored for the patient.
func (p *Patient) HasBSN() bool {
	return len(p.BSNEncrypted) > 0
}
