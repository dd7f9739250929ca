package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/area-service/internal/domain"
)

// MemoryUserRepository keeps users in process memory. It backs the "memory"
// store driver and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return ErrConflict
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// MemoryAreaRepository keeps areas in process memory.
type MemoryAreaRepository struct {
	mu    sync.RWMutex
	areas map[string]domain.Area
}

// NewMemoryAreaRepository returns an empty repository.
func NewMemoryAreaRepository() *MemoryAreaRepository {
	return &MemoryAreaRepository{areas: make(map[string]domain.Area)}
}

func (r *MemoryAreaRepository) Create(_ context.Context, area *domain.Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.areas[area.ID]; ok {
		return ErrConflict
	}
	r.areas[area.ID] = cloneArea(*area)
	return nil
}

func (r *MemoryAreaRepository) Update(_ context.Context, area *domain.Area) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.areas[area.ID]
	if !ok || existing.OwnerID != area.OwnerID {
		return ErrNotFound
	}
	updated := cloneArea(*area)
	updated.CreatedAt = existing.CreatedAt
	r.areas[area.ID] = updated
	return nil
}

func (r *MemoryAreaRepository) Delete(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.areas[id]
	if !ok || existing.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.areas, id)
	return nil
}

func (r *MemoryAreaRepository) GetByIDAndOwner(_ context.Context, id, ownerID string) (*domain.Area, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	area, ok := r.areas[id]
	if !ok || area.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	out := cloneArea(area)
	return &out, nil
}

func (r *MemoryAreaRepository) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]domain.Area, int64, error) {
	r.mu.RLock()
	owned := make([]domain.Area, 0)
	for _, area := range r.areas {
		if area.OwnerID == ownerID {
			owned = append(owned, cloneArea(area))
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	total := int64(len(owned))
	if offset < 0 || limit < 0 {
		return nil, total, fmt.Errorf("invalid window: limit %d offset %d", limit, offset)
	}
	if offset >= len(owned) {
		return []domain.Area{}, total, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], total, nil
}

func cloneArea(a domain.Area) domain.Area {
	if a.LocationPoint != nil {
		a.LocationPoint = append([]float64(nil), a.LocationPoint...)
	}
	return a
}

var (
	_ UserRepository = (*MemoryUserRepository)(nil)
	_ AreaRepository = (*MemoryAreaRepository)(nil)
)
