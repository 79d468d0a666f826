package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/dispatch"
)

type flakySender struct {
	err   error
	calls int
}

func (s *flakySender) Send(ctx context.Context, msg dispatch.Message) error {
	s.calls++
	return s.err
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySender{err: errors.New("provider down")}

	s := dispatch.NewProtectedSender(inner, dispatch.ProtectedSenderConfig{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
	})

	msg := dispatch.Message{Channel: dispatch.ChannelEmail, To: "a@b.com", Code: "123456"}

	for i := 0; i < 3; i++ {
		if err := s.Send(context.Background(), msg); err == nil {
			t.Fatalf("call %d: expected the inner failure to surface", i)
		}
	}

	// the circuit is open now; the inner sender must not be reached
	err := s.Send(context.Background(), msg)

	if !errors.Is(err, dispatch.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if inner.calls != 3 {
		t.Fatalf("inner sender called %d times, want 3", inner.calls)
	}
}

func TestCircuitRecoversAfterCooldown(t *testing.T) {
	inner := &flakySender{err: errors.New("provider down")}

	s := dispatch.NewProtectedSender(inner, dispatch.ProtectedSenderConfig{
		FailureThreshold: 2,
		Cooldown:         20 * time.Millisecond,
	})

	msg := dispatch.Message{Channel: dispatch.ChannelSMS, To: "+15550001111", Code: "123456"}

	for i := 0; i < 2; i++ {
		_ = s.Send(context.Background(), msg)
	}

	if err := s.Send(context.Background(), msg); !errors.Is(err, dispatch.ErrCircuitOpen) {
		t.Fatalf("expected an open circuit, got %v", err)
	}

	// provider comes back; half-open trial should close the circuit
	inner.err = nil

	time.Sleep(30 * time.Millisecond)

	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("expected the half-open call to succeed: %v", err)
	}

	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("expected the closed circuit to pass calls through: %v", err)
	}
}

func TestCircuitPassesThroughSuccess(t *testing.T) {
	inner := &flakySender{}

	s := dispatch.NewProtectedSender(inner, dispatch.ProtectedSenderConfig{})

	msg := dispatch.Message{Channel: dispatch.ChannelEmail, To: "a@b.com", Code: "123456"}

	for i := 0; i < 5; i++ {
		if err := s.Send(context.Background(), msg); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	if inner.calls != 5 {
		t.Fatalf("inner sender called %d times, want 5", inner.calls)
	}
}
