package profile

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/models"
)

type contextKey string

const (
	profileKey contextKey = "profile"
	slotKey    contextKey = "profile_slot"
)

// WithProfile stores p in ctx and, if an outer middleware opened an ID
// slot, records p's ID there as well.
func WithProfile(ctx context.Context, p *models.Profile) context.Context {
	if slot, ok := ctx.Value(slotKey).(*atomic.Value); ok && p != nil {
		slot.Store(p.ID)
	}
	return context.WithValue(ctx, profileKey, p)
}

func FromContext(ctx context.Context) *models.Profile {
	p, _ := ctx.Value(profileKey).(*models.Profile)
	return p
}

func IDFromContext(ctx context.Context) uuid.UUID {
	if p := FromContext(ctx); p != nil {
		return p.ID
	}
	return uuid.Nil
}

// WithIDSlot opens a slot that a later WithProfile on any derived context
// fills in. Middleware running before authentication uses it to learn who
// the caller turned out to be.
func WithIDSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, slotKey, new(atomic.Value))
}

// SlotID returns the ID recorded in ctx's slot, or uuid.Nil.
func SlotID(ctx context.Context) uuid.UUID {
	slot, ok := ctx.Value(slotKey).(*atomic.Value)
	if !ok {
		return uuid.Nil
	}
	id, _ := slot.Load().(uuid.UUID)
	return id
}
