package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/presence/internal/models"
)

type memoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]models.User
}

// NewMemoryUserRepository keeps users in process memory. Records are lost on
// restart.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[int64]models.User)}
}

func (r *memoryUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		user := u
		users = append(users, &user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.PhoneNumber == phoneNumber })
}

func (r *memoryUserRepository) find(match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryUserRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if id == user.ID {
			continue
		}
		if u.Email == user.Email {
			return nil, ErrEmailTaken
		}
		if u.PhoneNumber == user.PhoneNumber {
			return nil, ErrPhoneTaken
		}
	}

	saved := *user
	if saved.ID == 0 {
		r.nextID++
		saved.ID = r.nextID
	} else {
		existing, ok := r.users[saved.ID]
		if !ok {
			return nil, ErrUserNotFound
		}
		saved.Status = existing.Status
	}
	r.users[saved.ID] = saved
	return &saved, nil
}

func (r *memoryUserRepository) SetStatus(ctx context.Context, id int64, status models.PresenceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	r.users[id] = u
	return nil
}

func (r *memoryUserRepository) SetAllOffline(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.users {
		if u.Status != models.StatusOffline {
			u.Status = models.StatusOffline
			r.users[id] = u
			n++
		}
	}
	return n, nil
}

func (r *memoryUserRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}
