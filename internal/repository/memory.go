package repository

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/atinyakov/GateKeeper/internal/models"
)

// MemoryUserRepository keeps users in process memory. It is used when no
// database is configured and in tests. It is safe for concurrent use.
type MemoryUserRepository struct {
	mu        sync.RWMutex
	passwords map[string]string
	order     []string
}

// NewMemoryUserRepository returns an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{passwords: make(map[string]string)}
}

// Exists reports whether username is registered.
func (r *MemoryUserRepository) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.passwords[username]
	return ok, nil
}

// Get returns the user when both username and password match, nil otherwise.
func (r *MemoryUserRepository) Get(_ context.Context, username, password string) (*models.User, error) {
	r.mu.RLock()
	stored, ok := r.passwords[username]
	r.mu.RUnlock()
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return nil, nil
	}
	return &models.User{Username: username, Password: stored}, nil
}

// Add inserts user, returning ErrUserExists when the username is taken.
func (r *MemoryUserRepository) Add(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.passwords[user.Username]; ok {
		return ErrUserExists
	}
	r.passwords[user.Username] = user.Password
	r.order = append(r.order, user.Username)
	return nil
}

// Delete removes username if present.
func (r *MemoryUserRepository) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.passwords[username]; !ok {
		return nil
	}
	delete(r.passwords, username)
	for i, u := range r.order {
		if u == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetAll lists users in registration order without their passwords.
func (r *MemoryUserRepository) GetAll(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(r.order))
	for _, u := range r.order {
		users = append(users, models.User{Username: u})
	}
	return users, nil
}
