package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/authhub/internal/dispatch"
	"github.com/geocoder89/authhub/internal/security"
)

var (
	// ErrNoMatch covers every verification failure: no outstanding code,
	// an expired code, or a code that does not equal the submitted one.
	ErrNoMatch = errors.New("no matching passcode")

	ErrDispatchFailed = errors.New("passcode dispatch failed")
)

// Record is one outstanding passcode for an identifier. Several records may
// exist at once; verification always considers the newest by CreatedAt.
type Record struct {
	ID        string
	Code      string
	CreatedAt time.Time
}

// Store keeps outstanding passcodes keyed by identifier (email or
// country-code+mobile). Implementations prune records older than their TTL.
type Store interface {
	Add(ctx context.Context, identifier, code string) (Record, error)
	// Latest returns the most recently created live record, or ErrNoMatch.
	Latest(ctx context.Context, identifier string) (Record, error)
	Remove(ctx context.Context, identifier, id string) error
}

// Issuer generates a numeric code, dispatches it through the external
// channel, and records it only once dispatch has succeeded.
type Issuer struct {
	store  Store
	sender dispatch.Sender
	length int
	ttl    time.Duration
}

func NewIssuer(store Store, sender dispatch.Sender, length int, ttl time.Duration) *Issuer {
	if length <= 0 {
		length = 6
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Issuer{
		store:  store,
		sender: sender,
		length: length,
		ttl:    ttl,
	}
}

// Issue sends a fresh code to the recipient over the given channel. The code
// is returned to no one: callers only learn the expiry window.
func (i *Issuer) Issue(ctx context.Context, channel dispatch.Channel, recipient, identifier string) (time.Duration, error) {
	code, err := security.GenerateNumericCode(i.length)

	if err != nil {
		return 0, err
	}

	err = i.sender.Send(ctx, dispatch.Message{
		Channel: channel,
		To:      recipient,
		Code:    code,
	})

	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	// persist only after the gateway accepted the message

	_, err = i.store.Add(ctx, identifier, code)

	if err != nil {
		return 0, err
	}

	return i.ttl, nil
}

// Verifier checks a submitted code against the newest outstanding record and
// consumes it on success.
type Verifier struct {
	store Store
}

func NewVerifier(store Store) *Verifier {
	return &Verifier{store: store}
}

func (v *Verifier) Verify(ctx context.Context, identifier, code string) error {
	rec, err := v.store.Latest(ctx, identifier)

	if err != nil {
		return err
	}

	if rec.Code != code {
		return ErrNoMatch
	}

	// single-use: drop the record the moment it matches
	return v.store.Remove(ctx, identifier, rec.ID)
}
