package dispatch

import (
	"context"
	"time"

	"github.com/geocoder89/authhub/internal/observability"
)

// MetricsSender records gateway latency and outcomes around an inner Sender.
type MetricsSender struct {
	inner Sender
	prom  *observability.Prom
}

func NewMetricsSender(inner Sender, prom *observability.Prom) *MetricsSender {
	return &MetricsSender{inner: inner, prom: prom}
}

func (s *MetricsSender) Send(ctx context.Context, msg Message) error {
	start := time.Now()
	err := s.inner.Send(ctx, msg)

	result := "ok"

	if err != nil {
		result = "error"
	}

	s.prom.DispatchResults.WithLabelValues(string(msg.Channel), result).Inc()
	s.prom.DispatchDuration.WithLabelValues(string(msg.Channel), result).Observe(time.Since(start).Seconds())

	return err
}
