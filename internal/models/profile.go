package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a row of the platform's profiles table. City and Taluka are the
// user's home location and drive geographic visibility.
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	Role      Role      `json:"role" db:"role"`
	City      string    `json:"city,omitempty" db:"city"`
	Taluka    string    `json:"taluka,omitempty" db:"taluka"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Location is the geographic position a resource resolves to.
type Location struct {
	City   string `json:"city,omitempty"`
	Taluka string `json:"taluka,omitempty"`
}

func (p Profile) Location() Location {
	return Location{City: p.City, Taluka: p.Taluka}
}
