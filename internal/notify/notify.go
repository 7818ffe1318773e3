// Package notify delivers reservation and registration events to the outside
// world. Delivery happens after commit and never affects the booking.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kirinyoku/inn-go/internal/metrics"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationReleased  = "reservation.released"
	EventRegistrationComplete = "registration.completed"
	EventRegistrationRejected = "registration.rejected"
)

// Event is the message published to every sink. Guest contact fields let a
// downstream mailer address the guest; nothing else about other guests is
// included.
type Event struct {
	Type           string    `json:"type"`
	ReservationID  string    `json:"reservation_id,omitempty"`
	RegistrationID string    `json:"registration_id,omitempty"`
	CategoryID     string    `json:"category_id,omitempty"`
	RoomID         string    `json:"room_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	CheckIn        string    `json:"check_in,omitempty"`
	CheckOut       string    `json:"check_out,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	At             time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Log writes events to the application logger. It is the sink used when no
// broker is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, ev Event) error {
	l.logger.InfoContext(ctx, "notification",
		slog.String("type", ev.Type),
		slog.String("reservation_id", ev.ReservationID),
		slog.String("registration_id", ev.RegistrationID),
		slog.String("status", ev.Status),
	)
	return nil
}

// Multi fans an event out to several sinks and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send is the after-commit delivery used by the services. It returns at once;
// the event is delivered on its own goroutine, bounded in time, and errors
// are logged and dropped.
func Send(ctx context.Context, n Notifier, logger *slog.Logger, ev Event) {
	if n == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	go deliver(context.WithoutCancel(ctx), n, logger, ev, sendTimeout)
}

const sendTimeout = 5 * time.Second

func deliver(ctx context.Context, n Notifier, logger *slog.Logger, ev Event, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := n.Notify(ctx, ev); err != nil {
		metrics.Notifications.WithLabelValues(ev.Type, "failed").Inc()
		if logger != nil {
			logger.WarnContext(ctx, "notification failed",
				slog.String("type", ev.Type),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	metrics.Notifications.WithLabelValues(ev.Type, "sent").Inc()
}
