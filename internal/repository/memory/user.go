package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
)

type userRepositoryImpl struct {
	mu    sync.RWMutex
	users map[string]user.User
}

// NewUserRepository seeds the store; accounts are managed outside this service.
func NewUserRepository(users ...user.User) user.UserRepository {
	r := &userRepositoryImpl{users: make(map[string]user.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// GetByEmail implements user.UserRepository.
func (r *userRepositoryImpl) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

// GetByID implements user.UserRepository.
func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

// ListActive implements user.UserRepository.
func (r *userRepositoryImpl) ListActive(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []user.User
	for _, u := range r.users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}
