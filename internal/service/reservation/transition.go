package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/availability"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/metrics"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/tracing"
	"github.com/kirinyoku/inn-go/internal/uow"
	"go.opentelemetry.io/otel/attribute"
)

// Transition moves a reservation to status to and applies its inventory
// effect in the same unit of work.
//
// Releasing moves (to checked-out or cancelled from an active status) give
// the room back; occupying moves (pending or checked-out to confirmed)
// re-check the ledger first. A pending reservation whose room was taken in
// the meantime is moved to another free room of its category.
//
// A move to the current status is rejected, so repeating a call never
// changes a counter twice.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to domain.ReservationStatus) (_ *domain.Reservation, err error) {
	const op = "service.reservation.Transition"

	ctx, span := tracing.Start(ctx, op,
		attribute.String("reservation_id", id.String()),
		attribute.String("to", string(to)),
	)
	defer func() { tracing.End(span, err) }()

	if !to.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown status"))
	}

	var (
		updated domain.Reservation
		from    domain.ReservationStatus
	)

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		peek, err := tx.Reservations().Get(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrReservationNotFound)
		}

		// lock order: category, then reservation, as in Create
		cat, err := tx.Categories().GetForUpdate(ctx, peek.CategoryID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		rv, err := tx.Reservations().GetForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrReservationNotFound)
		}

		from = rv.Status
		if !domain.CanTransition(from, to) {
			return IllegalTransitionError{From: from, To: to}
		}

		switch domain.EffectOf(from, to) {
		case domain.EffectOccupy:
			if cat == nil {
				return ErrCategoryNotFound
			}
			if err := s.reoccupy(ctx, tx, rv, to); err != nil {
				return err
			}
		case domain.EffectRelease:
			if err := tx.Reservations().UpdateStatus(ctx, rv.ID, to, rv.RoomID); err != nil {
				return err
			}
			if err := s.release(ctx, tx, rv.CategoryID, rv.RoomID); err != nil {
				return err
			}
		default:
			if err := tx.Reservations().UpdateStatus(ctx, rv.ID, to, rv.RoomID); err != nil {
				return err
			}
			if to == domain.StatusCheckedIn {
				if err := tx.Rooms().SetStatus(ctx, rv.RoomID, domain.RoomOccupied); err != nil &&
					!errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}
		}

		if err := tx.Reservations().AppendHistory(ctx, domain.StatusChange{
			ReservationID: rv.ID,
			From:          from,
			To:            to,
			At:            s.now().UTC(),
		}); err != nil {
			return err
		}

		rv.Status = to
		updated = *rv

		after(func(ctx context.Context) {
			s.inventoryChanged(ctx, rv.CategoryID)
			switch domain.EffectOf(from, to) {
			case domain.EffectOccupy:
				s.notify(ctx, notify.EventReservationConfirmed, *rv)
			case domain.EffectRelease:
				s.notify(ctx, notify.EventReservationReleased, *rv)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()

	s.logger.InfoContext(ctx, "reservation status changed",
		slog.String("reservation_id", id.String()),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	return &updated, nil
}

// reoccupy takes the reservation's room again, or for a pending reservation
// any free room of the category.
func (s *Service) reoccupy(ctx context.Context, tx repository.Tx, rv *domain.Reservation, to domain.ReservationStatus) error {
	req := availability.Request{CheckIn: rv.CheckIn, CheckOut: rv.CheckOut, RoomID: rv.RoomID}

	room, err := s.pick(ctx, tx, rv.CategoryID, req)
	if err != nil && rv.Status == domain.StatusPending &&
		(errors.Is(err, ErrRoomUnavailable) || errors.Is(err, ErrRoomNotFound)) {
		req.RoomID = uuid.Nil
		room, err = s.pick(ctx, tx, rv.CategoryID, req)
	}
	if err != nil {
		return err
	}

	held, err := tx.Reservations().CountActiveByRoom(ctx, room.ID)
	if err != nil {
		return err
	}

	if err := tx.Reservations().UpdateStatus(ctx, rv.ID, to, room.ID); err != nil {
		return mapRepoErr(err, ErrReservationNotFound)
	}

	rv.RoomID = room.ID

	return s.occupy(ctx, tx, rv.CategoryID, room.ID, held)
}

// SetPaymentStatus records the payment axis of a reservation. It does not
// touch inventory.
func (s *Service) SetPaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Reservation, error) {
	const op = "service.reservation.SetPaymentStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("payment_status", "unknown payment status"))
	}

	var updated domain.Reservation

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		rv, err := tx.Reservations().GetForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, ErrReservationNotFound)
		}

		if err := tx.Reservations().UpdatePaymentStatus(ctx, id, status); err != nil {
			return err
		}

		rv.PaymentStatus = status
		updated = *rv

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}
