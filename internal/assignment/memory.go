package assignment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
)

type key struct {
	userID uuid.UUID
	role   models.Role
}

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[key]models.Assignment
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[key]models.Assignment),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID, role models.Role) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[key{userID, role}]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, a models.Assignment, expectedVersion *int64) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{a.UserID, a.Role}
	prev, exists := s.rows[k]

	if expectedVersion != nil {
		current := int64(0)
		if exists {
			current = prev.Version
		}
		if current != *expectedVersion {
			return nil, rbac.ErrConflict
		}
	}

	a = clone(a)
	a.Version = prev.Version + 1
	a.UpdatedAt = s.now()
	s.rows[k] = a

	out := clone(a)
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, role}
	if _, ok := s.rows[k]; !ok {
		return rbac.ErrNotFound
	}
	delete(s.rows, k)
	return nil
}

func (s *MemoryStore) ListByRole(_ context.Context, role models.Role) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Assignment
	for k, a := range s.rows {
		if k.role == role {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

func clone(a models.Assignment) models.Assignment {
	a.AssignedCities = append([]string{}, a.AssignedCities...)
	a.AssignedTalukas = append([]string{}, a.AssignedTalukas...)
	if a.AssignedBy != nil {
		by := *a.AssignedBy
		a.AssignedBy = &by
	}
	return a
}
