package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/broker/messages"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/pkg/errors"
)

const (
	notifyTimeout   = 10 * time.Second
	rateLimitWindow = time.Minute
)

type Consumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Dispatcher drains the status-changed feed and drives the external
// notification sink. Delivery is at-most-once: every message is committed
// whether the sink took it or not, a failed email is only a log line.
type Dispatcher struct {
	consumer Consumer
	sink     notifier.Sink
	rl       RateLimiter

	limitPerMinute int64

	sent      atomic.Int64
	failed    atomic.Int64
	throttled atomic.Int64
	malformed atomic.Int64
	skipped   atomic.Int64
}

func New(consumer Consumer, sink notifier.Sink, rl RateLimiter, limitPerMinute int64) *Dispatcher {
	return &Dispatcher{
		consumer:       consumer,
		sink:           sink,
		rl:             rl,
		limitPerMinute: limitPerMinute,
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	return d.consumer.Consume(ctx, func(key, value []byte) error {
		return d.handle(ctx, value)
	})
}

func (d *Dispatcher) handle(ctx context.Context, value []byte) error {
	var msg messages.StatusChanged
	if err := json.Unmarshal(value, &msg); err != nil {
		d.malformed.Add(1)
		slog.Error("malformed status-changed message, skipping", "err", err)
		return nil
	}
	if msg.OwnerEmail == "" {
		d.skipped.Add(1)
		return nil
	}

	if d.rl != nil && d.limitPerMinute > 0 {
		allowed, n, err := d.rl.Allow(ctx, "notify:"+msg.OwnerEmail, d.limitPerMinute, rateLimitWindow)
		if err != nil {
			// redis недоступен — шлём без лимита
			slog.Warn("rate limiter unavailable", "err", err)
		} else if !allowed {
			d.throttled.Add(1)
			slog.Info("notification throttled", "recipient", msg.OwnerEmail, "count", n)
			return nil
		}
	}

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := d.sink.Notify(notifyCtx, notifier.ComposeStatusEmail(msg)); err != nil {
		d.failed.Add(1)
		switch {
		case errors.Is(err, models.ErrRecipientInvalid):
			slog.Warn("sink rejected recipient", "package_id", msg.PackageID, "recipient", msg.OwnerEmail)
		case errors.Is(err, models.ErrSinkUnavailable):
			slog.Error("notification sink unavailable", "package_id", msg.PackageID, "err", err)
		default:
			slog.Error("notification failed", "package_id", msg.PackageID, "err", err)
		}
		return nil
	}

	d.sent.Add(1)
	slog.Info("notification sent", "package_id", msg.PackageID, "status", msg.Status, "recipient", msg.OwnerEmail)
	return nil
}

type Stats struct {
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Throttled int64 `json:"throttled"`
	Malformed int64 `json:"malformed"`
	Skipped   int64 `json:"skipped"`
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:      d.sent.Load(),
		Failed:    d.failed.Load(),
		Throttled: d.throttled.Load(),
		Malformed: d.malformed.Load(),
		Skipped:   d.skipped.Load(),
	}
}
