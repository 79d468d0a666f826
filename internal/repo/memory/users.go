package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
)

// UsersRepo is the in-memory stand-in for the Mongo users collection, used by
// handler and integration tests.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // keyed by user id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if u.Email != "" && existing.Email == u.Email {
			return user.ErrDuplicate
		}
		if u.Mobile != "" && existing.Mobile == u.Mobile && existing.CountryCode == u.CountryCode {
			return user.ErrDuplicate
		}
	}

	r.items[u.ID] = u
	return nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByMobile(ctx context.Context, countryCode, mobile string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.CountryCode == countryCode && u.Mobile == mobile {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(ctx context.Context, userID string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[userID]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	for k, v := range fields {
		s, _ := v.(string)

		switch k {
		case "first_name":
			u.FirstName = s
		case "last_name":
			u.LastName = s
		case "dob":
			u.DOB = s
		case "profile_photo":
			u.ProfilePhoto = s
		}
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[userID] = u

	return u, nil
}

func (r *UsersRepo) SetPassword(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[userID]

	if !ok {
		return user.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.PasswordSet = true
	u.UpdatedAt = time.Now().UTC()
	r.items[userID] = u

	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[userID]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, userID)
	return nil
}
