// Package assignment persists region assignments and runs the manager
// workflows on top of them: assign, revoke, list a team, resolve a user's
// permissions and reconcile grants whose manager lost coverage.
package assignment

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/models"
)

// Store is keyed by (user_id, role).
//
// Upsert replaces both region sets. With a nil expectedVersion the last
// write wins. Otherwise the stored version must equal *expectedVersion
// (0 meaning "no row yet") or rbac.ErrConflict is returned. Get and Delete
// return rbac.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID, role models.Role) (*models.Assignment, error)
	Upsert(ctx context.Context, a models.Assignment, expectedVersion *int64) (*models.Assignment, error)
	Delete(ctx context.Context, userID uuid.UUID, role models.Role) error
	ListByRole(ctx context.Context, role models.Role) ([]models.Assignment, error)
}

// Version returns a pointer for Store.Upsert's expectedVersion.
func Version(v int64) *int64 {
	return &v
}
