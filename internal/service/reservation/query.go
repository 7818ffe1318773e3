package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/availability"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/pricing"
)

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "service.reservation.Get"

	rv, err := s.store.Reservations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err, ErrReservationNotFound))
	}

	return rv, nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domain.StatusChange, error) {
	const op = "service.reservation.History"

	if _, err := s.store.Reservations().Get(ctx, id); err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err, ErrReservationNotFound))
	}

	h, err := s.store.Reservations().History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return h, nil
}

type Page struct {
	Items []domain.Reservation `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
	Pages int                  `json:"pages"`
}

// List returns one page of reservations, newest first. page is 1-based.
func (s *Service) List(ctx context.Context, search string, status domain.ReservationStatus, page, limit int) (*Page, error) {
	const op = "service.reservation.List"

	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown status"))
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	items, total, err := s.store.Reservations().List(ctx, domain.ReservationFilter{
		Search: search,
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if items == nil {
		items = []domain.Reservation{}
	}

	return &Page{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// Search lists the categories with at least one free room for the stay.
// It reads without locks: the answer is advisory and Create decides again.
func (s *Service) Search(ctx context.Context, q availability.Query) ([]availability.CategoryAvailability, error) {
	const op = "service.reservation.Search"

	if err := availability.ValidateStay(q.CheckIn, q.CheckOut, s.today()); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if q.Type != "" && !q.Type.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("type", "unknown room type"))
	}

	if q.PriceMax > 0 && q.PriceMin > q.PriceMax {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("price_range", "minimum is above maximum"))
	}

	q.CheckIn, q.CheckOut = domain.Day(q.CheckIn), domain.Day(q.CheckOut)

	cats, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rooms := make(map[uuid.UUID][]domain.Room, len(cats))
	held := make(map[uuid.UUID][]domain.Reservation, len(cats))

	for _, c := range cats {
		if !q.Matches(c) {
			continue
		}

		rs, err := s.store.Rooms().ListByCategory(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		rooms[c.ID] = rs

		conflicts, err := s.store.Reservations().FindOverlapping(ctx, domain.OverlapQuery{
			CategoryID: c.ID,
			CheckIn:    q.CheckIn,
			CheckOut:   q.CheckOut,
		})
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		held[c.ID] = conflicts
	}

	return availability.Search(q, cats, rooms, held), nil
}

type CheckResult struct {
	Available      bool         `json:"available"`
	AvailableRooms int          `json:"available_rooms"`
	Room           *domain.Room `json:"room,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	TotalPrice     float64      `json:"total_price,omitempty"`
	Nights         int          `json:"nights,omitempty"`
}

// CheckCategory answers whether one category can take the stay and which
// room Create would assign right now.
func (s *Service) CheckCategory(
	ctx context.Context,
	categoryID uuid.UUID,
	checkIn, checkOut time.Time,
	guests int,
) (*CheckResult, error) {
	const op = "service.reservation.CheckCategory"

	if err := availability.ValidateStay(checkIn, checkOut, s.today()); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	checkIn, checkOut = domain.Day(checkIn), domain.Day(checkOut)

	cat, err := s.store.Categories().Get(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err, ErrCategoryNotFound))
	}

	if cat.Status != domain.CategoryAvailable {
		return &CheckResult{Reason: "category is under maintenance"}, nil
	}

	if guests > cat.MaxGuests {
		return &CheckResult{Reason: fmt.Sprintf("maximum %d guests allowed", cat.MaxGuests)}, nil
	}

	rooms, err := s.store.Rooms().ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	conflicts, err := s.store.Reservations().FindOverlapping(ctx, domain.OverlapQuery{
		CategoryID: categoryID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	pool := availability.RoomPool{Rooms: rooms, Reservations: conflicts}
	req := availability.Request{CheckIn: checkIn, CheckOut: checkOut}
	free := pool.FreeRooms(req)
	if len(free) == 0 {
		return &CheckResult{Reason: "no rooms available for selected dates"}, nil
	}

	return &CheckResult{
		Available:      true,
		AvailableRooms: len(free),
		Room:           &free[0],
		TotalPrice:     pricing.Price(cat.BasePrice, cat.Discount, checkIn, checkOut),
		Nights:         domain.Nights(checkIn, checkOut),
	}, nil
}
