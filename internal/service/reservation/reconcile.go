package reservation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/uow"
)

type ReconcileReport struct {
	Categories int `json:"categories"`
	Counters   int `json:"counters_fixed"`
	Rooms      int `json:"rooms_fixed"`
}

// Reconcile rebuilds every category's AvailableRooms counter and the
// occupied/available status of its rooms from the reservation ledger. Each
// category is repaired in its own unit of work under the category lock.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	const op = "service.reservation.Reconcile"

	var report ReconcileReport

	cats, err := s.store.Categories().List(ctx)
	if err != nil {
		return report, fmt.Errorf("%s:%w", op, err)
	}

	for _, c := range cats {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s:%w", op, err)
		}

		var (
			counter bool
			rooms   int
		)

		err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
			counter, rooms = false, 0

			changed, err := s.recount(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			counter = changed

			rs, err := tx.Rooms().ListByCategory(ctx, c.ID)
			if err != nil {
				return err
			}

			for _, r := range rs {
				fixed, err := s.repairRoom(ctx, tx, r)
				if err != nil {
					return err
				}
				if fixed {
					rooms++
				}
			}

			return nil
		})
		if err != nil {
			return report, fmt.Errorf("%s:%w", op, err)
		}

		report.Categories++
		report.Rooms += rooms
		if counter {
			report.Counters++
		}

		if counter || rooms > 0 {
			s.inventoryChanged(ctx, c.ID)
			s.logger.WarnContext(ctx, "inventory drift repaired",
				slog.String("category_id", c.ID.String()),
				slog.Bool("counter", counter),
				slog.Int("rooms", rooms),
			)
		}
	}

	return report, nil
}

// repairRoom flips a room between occupied and available to match whether
// any active reservation holds it. Out-of-service rooms are left alone.
func (s *Service) repairRoom(ctx context.Context, tx repository.Tx, r domain.Room) (bool, error) {
	if !r.Status.InService() {
		return false, nil
	}

	held, err := tx.Reservations().CountActiveByRoom(ctx, r.ID)
	if err != nil {
		return false, err
	}

	want := domain.RoomAvailable
	if held > 0 {
		want = domain.RoomOccupied
	}
	if r.Status == want {
		return false, nil
	}

	return true, tx.Rooms().SetStatus(ctx, r.ID, want)
}
