package observability

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// ObserveStore wraps one logical store operation with latency and error
// accounting. Safe to call on a nil receiver so repositories can run without
// metrics in tests.
func (p *Prom) ObserveStore(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.StoreErrorsTotal.WithLabelValues(op, classifyStoreErr(err)).Inc()
	}
	p.StoreOpDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyStoreErr(err error) string {
	if mongo.IsDuplicateKeyError(err) {
		return "duplicate_key"
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return "no_documents"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no matching"):
		return "not_found"
	default:
		return "unknown"
	}
}
