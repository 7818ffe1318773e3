package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/availability"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/metrics"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/pricing"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/tracing"
	"github.com/kirinyoku/inn-go/internal/uow"
	"go.opentelemetry.io/otel/attribute"
)

// CreateRequest asks for a stay in a category, or in one room of it.
// Deferred creates a pending reservation that holds no room until it is
// confirmed.
type CreateRequest struct {
	CategoryID uuid.UUID
	RoomID     uuid.UUID
	GuestName  string
	GuestEmail string
	GuestPhone string
	Guests     int
	CheckIn    time.Time
	CheckOut   time.Time
	Notes      string
	Deferred   bool
	CreatedBy  string
}

func (r CreateRequest) validate(today time.Time) error {
	if r.CategoryID == uuid.Nil && r.RoomID == uuid.Nil {
		return domain.Invalid("category_id", "category or room is required")
	}

	if strings.TrimSpace(r.GuestName) == "" {
		return domain.Invalid("guest_name", "is required")
	}

	if strings.TrimSpace(r.GuestEmail) == "" {
		return domain.Invalid("guest_email", "is required")
	}

	if !domain.ValidEmail(r.GuestEmail) {
		return domain.Invalid("guest_email", "is not a valid email address")
	}

	if strings.TrimSpace(r.GuestPhone) == "" {
		return domain.Invalid("guest_phone", "is required")
	}

	if r.Guests < 1 {
		return domain.Invalid("guests", "must be at least 1")
	}

	return availability.ValidateStay(r.CheckIn, r.CheckOut, today)
}

// Create books a room for the requested stay.
//
// The category row is locked for the whole unit of work, so the overlap read,
// the insert and the counter update of concurrent requests for one category
// run one after another. The storage layer additionally refuses overlapping
// active stays of one room.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: the stay to book.
//   - rlKey: rate limiter key of the caller; empty disables limiting.
//
// Returns:
//   - *domain.Reservation: the reservation as committed.
//   - error: a *domain.ValidationError for malformed requests.
//   - error: ErrCategoryNotFound or ErrRoomNotFound.
//   - error: ErrRoomUnavailable when no room is free for the stay.
//   - error: ErrRateLimited when the caller is over its limit.
func (s *Service) Create(ctx context.Context, req CreateRequest, rlKey string) (_ *domain.Reservation, err error) {
	const op = "service.reservation.Create"

	ctx, span := tracing.Start(ctx, op,
		attribute.String("category_id", req.CategoryID.String()),
		attribute.String("room_id", req.RoomID.String()),
	)
	defer func() {
		metrics.ReservationAttempts.WithLabelValues(metrics.Outcome(err)).Inc()
		tracing.End(span, err)
	}()

	if err := req.validate(s.today()); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	req.CheckIn, req.CheckOut = domain.Day(req.CheckIn), domain.Day(req.CheckOut)

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	var created domain.Reservation

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Tx,
		after func(uow.AfterCommit),
	) error {
		rv, err := s.allocate(ctx, tx, req)
		if err != nil {
			return err
		}

		created = *rv

		after(func(ctx context.Context) {
			s.inventoryChanged(ctx, rv.CategoryID)
			s.notify(ctx, notify.EventReservationCreated, *rv)
			if rv.Status == domain.StatusConfirmed {
				s.notify(ctx, notify.EventReservationConfirmed, *rv)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "reservation created",
		slog.String("reservation_id", created.ID.String()),
		slog.String("category_id", created.CategoryID.String()),
		slog.String("room_id", created.RoomID.String()),
		slog.String("status", string(created.Status)),
	)

	return &created, nil
}

func (s *Service) allocate(ctx context.Context, tx repository.Tx, req CreateRequest) (*domain.Reservation, error) {
	categoryID := req.CategoryID

	if req.RoomID != uuid.Nil {
		room, err := tx.Rooms().Get(ctx, req.RoomID)
		if err != nil {
			return nil, mapRepoErr(err, ErrRoomNotFound)
		}

		if categoryID == uuid.Nil {
			categoryID = room.CategoryID
		} else if room.CategoryID != categoryID {
			return nil, domain.Invalid("room_id", "room does not belong to the category")
		}
	}

	cat, err := tx.Categories().GetForUpdate(ctx, categoryID)
	if err != nil {
		return nil, mapRepoErr(err, ErrCategoryNotFound)
	}

	if cat.Status != domain.CategoryAvailable {
		return nil, ErrCategoryClosed
	}

	if req.Guests > cat.MaxGuests {
		return nil, domain.Invalid("guests", fmt.Sprintf("exceeds the maximum of %d for this category", cat.MaxGuests))
	}

	room, err := s.pick(ctx, tx, categoryID, availability.Request{
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		RoomID:   req.RoomID,
	})
	if err != nil {
		return nil, err
	}

	status := domain.StatusConfirmed
	if req.Deferred {
		status = domain.StatusPending
	}

	rv := &domain.Reservation{
		ID:            uuid.New(),
		RoomID:        room.ID,
		CategoryID:    cat.ID,
		GuestName:     strings.TrimSpace(req.GuestName),
		GuestEmail:    strings.TrimSpace(req.GuestEmail),
		GuestPhone:    strings.TrimSpace(req.GuestPhone),
		Guests:        req.Guests,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Notes:         req.Notes,
		TotalPrice:    pricing.Price(cat.BasePrice, cat.Discount, req.CheckIn, req.CheckOut),
		Status:        status,
		PaymentStatus: domain.PaymentPending,
		CreatedBy:     req.CreatedBy,
	}

	held, err := tx.Reservations().CountActiveByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Reservations().Create(ctx, rv); err != nil {
		return nil, mapRepoErr(err, ErrRoomNotFound)
	}

	if status.Active() {
		if err := s.occupy(ctx, tx, cat.ID, room.ID, held); err != nil {
			return nil, err
		}
	}

	if err := tx.Reservations().AppendHistory(ctx, domain.StatusChange{
		ReservationID: rv.ID,
		To:            status,
		At:            s.now().UTC(),
	}); err != nil {
		return nil, err
	}

	return rv, nil
}

// pick re-reads the ledger for the category and selects the room for req.
// Callers hold the category lock.
func (s *Service) pick(ctx context.Context, tx repository.Tx, categoryID uuid.UUID, req availability.Request) (domain.Room, error) {
	rooms, err := tx.Rooms().ListByCategory(ctx, categoryID)
	if err != nil {
		return domain.Room{}, err
	}

	conflicts, err := tx.Reservations().FindOverlapping(ctx, domain.OverlapQuery{
		CategoryID: categoryID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
	})
	if err != nil {
		return domain.Room{}, err
	}

	if req.RoomID != uuid.Nil && !hasRoom(rooms, req.RoomID) {
		return domain.Room{}, ErrRoomNotFound
	}

	room, ok := availability.RoomPool{Rooms: rooms, Reservations: conflicts}.Pick(req)
	if !ok {
		return domain.Room{}, ErrRoomUnavailable
	}

	return room, nil
}

func hasRoom(rooms []domain.Room, id uuid.UUID) bool {
	for _, r := range rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}
