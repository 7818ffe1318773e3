// Package reservation coordinates room reservations: every allocation and
// release of a room, and every write to a category's AvailableRooms counter,
// happens here inside one unit of work.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/metrics"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/repository"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
	"github.com/kirinyoku/inn-go/internal/uow"
)

type Cache interface {
	InvalidateCategory(ctx context.Context, id uuid.UUID) error
}

type Publisher interface {
	PublishInventoryChanged(ctx context.Context, kind, key string) error
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Config struct {
	// Now is the clock that decides what "today" is. Defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	cache    Cache
	pubsub   Publisher
	limiter  Limiter
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the coordinator. cache, pubsub, limiter and notifier are
// optional and may be nil.
func New(
	store repository.Store,
	cache Cache,
	pubsub Publisher,
	limiter Limiter,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		cache:    cache,
		pubsub:   pubsub,
		limiter:  limiter,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "reservation")),
		now:      cfg.Now,
	}
}

func (s *Service) today() time.Time {
	return domain.Day(s.now())
}

// occupy marks room as held by one more active reservation. The counter and
// the physical status only move when the room goes from unheld to held, so
// AvailableRooms stays total minus distinct held rooms.
func (s *Service) occupy(ctx context.Context, tx repository.Tx, categoryID, roomID uuid.UUID, heldBefore int) error {
	if heldBefore > 0 {
		return nil
	}

	if err := s.adjustAvailable(ctx, tx, categoryID, -1); err != nil {
		return err
	}

	return tx.Rooms().SetStatus(ctx, roomID, domain.RoomOccupied)
}

// release is the inverse of occupy, called after the releasing status
// change is written.
func (s *Service) release(ctx context.Context, tx repository.Tx, categoryID, roomID uuid.UUID) error {
	held, err := tx.Reservations().CountActiveByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if held > 0 {
		return nil
	}

	if err := s.adjustAvailable(ctx, tx, categoryID, 1); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	room, err := tx.Rooms().Get(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if room.Status == domain.RoomOccupied {
		return tx.Rooms().SetStatus(ctx, roomID, domain.RoomAvailable)
	}

	return nil
}

// adjustAvailable moves the cached counter. A counter that has drifted out
// of range is rebuilt from the ledger instead of failing the booking: the
// counter never gates an allocation.
func (s *Service) adjustAvailable(ctx context.Context, tx repository.Tx, categoryID uuid.UUID, delta int) error {
	err := tx.Categories().AdjustAvailable(ctx, categoryID, delta)
	if !errors.Is(err, repository.ErrConflict) {
		return err
	}

	s.logger.WarnContext(ctx, "available rooms counter out of range, recounting",
		slog.String("category_id", categoryID.String()),
		slog.Int("delta", delta),
	)

	_, err = s.recount(ctx, tx, categoryID)
	return err
}

// recount rewrites AvailableRooms from the ledger and reports whether it
// changed.
func (s *Service) recount(ctx context.Context, tx repository.Tx, categoryID uuid.UUID) (bool, error) {
	const op = "service.reservation.recount"

	c, err := tx.Categories().GetForUpdate(ctx, categoryID)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	occupied, err := tx.Reservations().OccupiedRooms(ctx, categoryID)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	want := max(c.TotalRooms-occupied, 0)
	metrics.AvailableRooms.WithLabelValues(c.Name).Set(float64(want))
	if want == c.AvailableRooms {
		return false, nil
	}

	if err := tx.Categories().UpdateTotals(ctx, categoryID, c.TotalRooms, want); err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	metrics.CounterDrift.WithLabelValues(c.Name).Inc()

	return true, nil
}

// inventoryChanged is the after-commit hook shared by every write.
func (s *Service) inventoryChanged(ctx context.Context, categoryID uuid.UUID) {
	if s.cache != nil {
		if err := s.cache.InvalidateCategory(ctx, categoryID); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("category_id", categoryID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.pubsub != nil {
		_ = s.pubsub.PublishInventoryChanged(ctx, redisrepo.KindCategory, categoryID.String())
	}
}

func (s *Service) notify(ctx context.Context, typ string, rv domain.Reservation) {
	notify.Send(ctx, s.notifier, s.logger, notify.Event{
		Type:          typ,
		ReservationID: rv.ID.String(),
		CategoryID:    rv.CategoryID.String(),
		RoomID:        rv.RoomID.String(),
		Status:        string(rv.Status),
		Email:         rv.GuestEmail,
		Name:          rv.GuestName,
		CheckIn:       rv.CheckIn.Format(time.DateOnly),
		CheckOut:      rv.CheckOut.Format(time.DateOnly),
		Amount:        rv.TotalPrice,
		At:            s.now().UTC(),
	})
}

func mapRepoErr(err error, notFound error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrConflict):
		return ErrRoomUnavailable
	}
	return err
}
