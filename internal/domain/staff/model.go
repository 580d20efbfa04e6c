package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/praktijk/praktijk/internal/platform/auth"
)

// Member maps to the staff table.
type Member struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PracticeID   uuid.UUID `db:"practice_id" json:"practice_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	Role         auth.Role `db:"role" json:"role"`
	BIGNumber    *string   `db:"big_number" json:"big_number,omitempty"`
	Active       bool      `db:"active" json:"active"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
