package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
)

// MemoryStore is an in-process profile directory for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]models.Profile
}

func NewMemoryStore(profiles ...models.Profile) *MemoryStore {
	m := &MemoryStore{profiles: make(map[uuid.UUID]models.Profile, len(profiles))}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MemoryStore) Put(p models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *MemoryStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, rbac.ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) ListByAttribute(_ context.Context, attr Attribute, value string) ([]models.Profile, error) {
	if !attr.Valid() {
		return nil, fmt.Errorf("unsupported profile attribute %q", attr)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Profile
	for _, p := range m.profiles {
		var v string
		switch attr {
		case AttrRole:
			v = string(p.Role)
		case AttrCity:
			v = p.City
		case AttrTaluka:
			v = p.Taluka
		}
		if v == value {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}
