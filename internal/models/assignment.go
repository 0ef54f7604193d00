package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds a user, in one role, to a set of regions. (UserID, Role)
// is unique. Every write replaces the region sets wholesale.
type Assignment struct {
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	Role            Role       `json:"role" db:"role"`
	AssignedCities  []string   `json:"assigned_cities" db:"assigned_cities"`
	AssignedTalukas []string   `json:"assigned_talukas" db:"assigned_talukas"`
	AssignedBy      *uuid.UUID `json:"assigned_by,omitempty" db:"assigned_by"`
	Version         int64      `json:"version" db:"version"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Permissions is the resolved view of what a user may see.
type Permissions struct {
	UserID            uuid.UUID `json:"user_id"`
	Role              Role      `json:"role"`
	AssignedCities    []string  `json:"assigned_cities"`
	AssignedTalukas   []string  `json:"assigned_talukas"`
	AccessibleCities  []string  `json:"accessible_cities"`
	AccessibleTalukas []string  `json:"accessible_talukas"`
	Version           int64     `json:"version"`
}

// Subordinate is one row of a manager's team listing.
type Subordinate struct {
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	AssignedCities  []string  `json:"assigned_cities"`
	AssignedTalukas []string  `json:"assigned_talukas"`
	Version         int64     `json:"version"`
	HasAssignment   bool      `json:"has_assignment"`
}
