package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. Patients are not owned by an
// organization; any authenticated staff member can see them.
type Patient struct {
	ID                uuid.UUID `db:"id" json:"id"`
	FirstName         string    `db:"first_name" json:"first_name"`
	LastName          string    `db:"last_name" json:"last_name"`
	DOB               time.Time `db:"dob" json:"dob"`
	RAMQNumber        *string   `db:"ramq_number" json:"ramq_number,omitempty"`
	PreferredLanguage string    `db:"preferred_language" json:"preferred_language"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
