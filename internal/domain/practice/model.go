package practice

import (
	"time"

	"github.com/google/uuid"
)

// Practice maps to the practice table. A practice is the tenant root: every
// other row in the system hangs off a practice id.
type Practice struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	AGBCode     *string   `db:"agb_code" json:"agb_code,omitempty"`
	Email       string    `db:"email" json:"email"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	AddressLine *string   `db:"address_line" json:"address_line,omitempty"`
	PostalCode  *string   `db:"postal_code" json:"postal_code,omitempty"`
	City        *string   `db:"city" json:"city,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
