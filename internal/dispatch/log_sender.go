package dispatch

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogSender stands in for the real SMS/email gateway in dev and tests. The
// code is written to the process log only, never to a response.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("DISPATCH_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("DISPATCH_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	log.Printf("dispatch.otp channel=%s to=%s code=%s", msg.Channel, msg.To, msg.Code)
	return nil
}
