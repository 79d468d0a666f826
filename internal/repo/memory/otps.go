package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/otp"
	"github.com/google/uuid"
)

// OTPStore mirrors the Redis store's semantics: many live records per
// identifier, newest wins, TTL pruning on read.
type OTPStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string][]otp.Record
}

func NewOTPStore(ttl time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &OTPStore{
		ttl:   ttl,
		items: make(map[string][]otp.Record),
	}
}

func (s *OTPStore) Add(ctx context.Context, identifier, code string) (otp.Record, error) {
	rec := otp.Record{
		ID:        uuid.NewString(),
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.items[identifier] = append(s.items[identifier], rec)
	s.mu.Unlock()

	return rec, nil
}

func (s *OTPStore) Latest(ctx context.Context, identifier string) (otp.Record, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.items[identifier][:0]

	for _, rec := range s.items[identifier] {
		if now.Sub(rec.CreatedAt) < s.ttl {
			live = append(live, rec)
		}
	}
	s.items[identifier] = live

	if len(live) == 0 {
		return otp.Record{}, otp.ErrNoMatch
	}

	newest := live[0]

	for _, rec := range live[1:] {
		if rec.CreatedAt.After(newest.CreatedAt) {
			newest = rec
		}
	}

	return newest, nil
}

func (s *OTPStore) Remove(ctx context.Context, identifier, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[identifier][:0]

	for _, rec := range s.items[identifier] {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.items[identifier] = kept

	return nil
}
