package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kirinyoku/inn-go/internal/metrics"
)

var ErrQueueFull = errors.New("notification queue full")

// Dispatcher puts a bounded queue in front of slow sinks such as brokers.
// Notify only enqueues; Run delivers one event at a time.
type Dispatcher struct {
	next    Notifier
	logger  *slog.Logger
	queue   chan Event
	timeout time.Duration
}

func NewDispatcher(next Notifier, logger *slog.Logger, size int) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	return &Dispatcher{
		next:    next,
		logger:  logger,
		queue:   make(chan Event, size),
		timeout: sendTimeout,
	}
}

// Notify enqueues ev. A full queue drops the event and returns ErrQueueFull.
func (d *Dispatcher) Notify(_ context.Context, ev Event) error {
	select {
	case d.queue <- ev:
		return nil
	default:
		metrics.Notifications.WithLabelValues(ev.Type, "dropped").Inc()
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done, then flushes what is left
// within one delivery timeout.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-d.queue:
			deliver(context.WithoutCancel(ctx), d.next, d.logger, ev, d.timeout)
		case <-ctx.Done():
			d.flush()
			return nil
		}
	}
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	for {
		select {
		case ev := <-d.queue:
			deliver(ctx, d.next, d.logger, ev, d.timeout)
		case <-ctx.Done():
			if n := len(d.queue); n > 0 && d.logger != nil {
				d.logger.Warn("notifications lost on shutdown", slog.Int("count", n))
			}
			return
		default:
			return
		}
	}
}
