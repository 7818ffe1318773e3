// Package scheduler runs the periodic upkeep jobs: rebuilding room
// counters from the ledger and expiring unpaid registrations.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/inn-go/internal/service/reservation"
)

type reconciler interface {
	Reconcile(ctx context.Context) (reservation.ReconcileReport, error)
}

type registrationExpirer interface {
	ExpirePending(ctx context.Context) (int, error)
}

type Scheduler struct {
	reconciler        reconciler
	expirer           registrationExpirer
	reconcileInterval time.Duration
	expireInterval    time.Duration
	logger            *slog.Logger
}

// New builds a scheduler. A job whose interval is not positive is disabled.
func New(
	reconciler reconciler,
	expirer registrationExpirer,
	reconcileInterval time.Duration,
	expireInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		reconciler:        reconciler,
		expirer:           expirer,
		reconcileInterval: reconcileInterval,
		expireInterval:    expireInterval,
		logger:            logger.With(slog.String("component", "scheduler")),
	}
}

// Start blocks until ctx is done. It always returns nil so it can sit in an
// errgroup next to the HTTP server.
func (s *Scheduler) Start(ctx context.Context) error {
	reconcileC, stopReconcile := tick(s.reconcileInterval)
	defer stopReconcile()

	expireC, stopExpire := tick(s.expireInterval)
	defer stopExpire()

	s.logger.Info("scheduler started",
		slog.Duration("reconcile_interval", s.reconcileInterval),
		slog.Duration("expire_interval", s.expireInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-reconcileC:
			s.reconcile(ctx)
		case <-expireC:
			s.expire(ctx)
		}
	}
}

func (s *Scheduler) reconcile(ctx context.Context) {
	report, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.Error("reconcile failed", slog.String("error", err.Error()))
		return
	}

	if report.Counters > 0 || report.Rooms > 0 {
		s.logger.Warn("reconcile repaired drift",
			slog.Int("categories", report.Categories),
			slog.Int("counters", report.Counters),
			slog.Int("rooms", report.Rooms),
		)
	}
}

func (s *Scheduler) expire(ctx context.Context) {
	n, err := s.expirer.ExpirePending(ctx)
	if err != nil {
		s.logger.Error("failed to expire pending registrations", slog.String("error", err.Error()))
		return
	}

	if n > 0 {
		s.logger.Info("registrations expired", slog.Int("count", n))
	}
}

// tick returns a nil channel, which never fires, for a disabled job.
func tick(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}
