package models

import (
	"encoding/json"
	"net/netip"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ActorID     *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action      string          `json:"action" db:"action"`
	SubjectID   *uuid.UUID      `json:"subject_id,omitempty" db:"subject_id"`
	SubjectRole string          `json:"subject_role,omitempty" db:"subject_role"`
	Details     json.RawMessage `json:"details" db:"details"`
	IPAddress   *netip.Addr     `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
