// Package admin changes the shape of the inventory: categories, their rooms
// and the room counts the reservation coordinator books against.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/metrics"
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

type Service struct {
	store  repository.Store
	cache  Cache
	pubsub Publisher
	uow    *uow.UoW
	logger *slog.Logger
}

func New(store repository.Store, cache Cache, pubsub Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		logger: logger.With(slog.String("component", "admin")),
	}
}

type CategoryInput struct {
	Name        string
	Description string
	Images      []string
	BasePrice   float64
	Discount    float64
	Beds        int
	MaxGuests   int
	Type        domain.CategoryType
	Amenities   []string
	TotalRooms  int
	CreatedBy   string
}

func (in CategoryInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return domain.Invalid("name", "is required")
	case in.BasePrice < 0:
		return domain.Invalid("base_price", "cannot be negative")
	case in.Discount < 0 || in.Discount > 100:
		return domain.Invalid("discount", "must be between 0 and 100")
	case in.Beds < 1:
		return domain.Invalid("beds", "must be at least 1")
	case in.MaxGuests < 1:
		return domain.Invalid("max_guests", "must be at least 1")
	case !in.Type.Valid():
		return domain.Invalid("type", "unknown room type")
	case in.TotalRooms < 0:
		return domain.Invalid("total_rooms", "cannot be negative")
	}
	return nil
}

// CreateCategory creates a category together with its rooms. Rooms are
// numbered with the type initial and a running index (S1, S2, ...), ten to
// a floor.
//
// Returns:
//   - *domain.Category: the created category.
//   - error: a *domain.ValidationError, or ErrCategoryConflict if the name is
//     taken.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	const op = "service.admin.CreateCategory"

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	c := domain.Category{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Images:         in.Images,
		BasePrice:      in.BasePrice,
		Discount:       in.Discount,
		Beds:           in.Beds,
		MaxGuests:      in.MaxGuests,
		Type:           in.Type,
		Amenities:      in.Amenities,
		TotalRooms:     in.TotalRooms,
		AvailableRooms: in.TotalRooms,
		Status:         domain.CategoryAvailable,
		CreatedBy:      in.CreatedBy,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Categories().Create(ctx, &c); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrCategoryConflict
			}
			return err
		}

		rooms := newRooms(c, nil, c.TotalRooms)
		n, err := tx.Rooms().CreateMany(ctx, rooms)
		if err != nil {
			return err
		}
		if n != len(rooms) {
			return ErrRoomConflict
		}

		after(func(ctx context.Context) { s.changed(ctx, c.ID) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.AvailableRooms.WithLabelValues(c.Name).Set(float64(c.AvailableRooms))

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", c.ID.String()),
		slog.Int("rooms", c.TotalRooms),
	)

	return &c, nil
}

func (s *Service) SetCategoryStatus(ctx context.Context, id uuid.UUID, status domain.CategoryStatus) error {
	const op = "service.admin.SetCategoryStatus"

	if status != domain.CategoryAvailable && status != domain.CategoryMaintenance {
		return fmt.Errorf("%s:%w", op, domain.Invalid("status", "must be available or maintenance"))
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Categories().SetStatus(ctx, id, status); err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}
		after(func(ctx context.Context) { s.changed(ctx, id) })
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SetTotalRooms grows or shrinks a category to total rooms. Growing adds
// numbered rooms; shrinking removes free rooms, newest first, and fails
// with ErrCannotShrink when there are not enough of them.
func (s *Service) SetTotalRooms(ctx context.Context, id uuid.UUID, total int) (*domain.Category, error) {
	const op = "service.admin.SetTotalRooms"

	if total < 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("total_rooms", "cannot be negative"))
	}

	var updated domain.Category

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		c, err := tx.Categories().GetForUpdate(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}

		rooms, err := tx.Rooms().ListByCategory(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case total > len(rooms):
			add := newRooms(*c, rooms, total-len(rooms))
			if _, err := tx.Rooms().CreateMany(ctx, add); err != nil {
				return err
			}
		case total < len(rooms):
			if err := shrink(ctx, tx, rooms, len(rooms)-total); err != nil {
				return err
			}
		}

		available, err := availableFor(ctx, tx, id, total)
		if err != nil {
			return err
		}

		if err := tx.Categories().UpdateTotals(ctx, id, total, available); err != nil {
			return err
		}

		c.TotalRooms, c.AvailableRooms = total, available
		updated = *c

		after(func(ctx context.Context) { s.changed(ctx, id) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.AvailableRooms.WithLabelValues(updated.Name).Set(float64(updated.AvailableRooms))

	return &updated, nil
}

// DeleteCategory removes a category and its rooms. It is refused while any
// reservation of the category is active.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	const op = "service.admin.DeleteCategory"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if _, err := tx.Categories().GetForUpdate(ctx, id); err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}

		active, err := tx.Reservations().CountActiveByCategory(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrCategoryInUse
		}

		if err := tx.Categories().Delete(ctx, id); err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}

		after(func(ctx context.Context) { s.changed(ctx, id) })
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id.String()))

	return nil
}

func (s *Service) ListRooms(ctx context.Context, categoryID uuid.UUID) ([]domain.Room, error) {
	const op = "service.admin.ListRooms"

	if _, err := s.store.Categories().Get(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapNotFound(err, ErrCategoryNotFound))
	}

	rooms, err := s.store.Rooms().ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if rooms == nil {
		rooms = []domain.Room{}
	}

	return rooms, nil
}

// CreateRoom adds one room to a category and grows its totals.
func (s *Service) CreateRoom(ctx context.Context, categoryID uuid.UUID, number string, floor int) (*domain.Room, error) {
	const op = "service.admin.CreateRoom"

	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("number", "is required"))
	}
	if floor < 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("floor", "cannot be negative"))
	}

	room := domain.Room{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Number:     number,
		Floor:      floor,
		Status:     domain.RoomAvailable,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		c, err := tx.Categories().GetForUpdate(ctx, categoryID)
		if err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}

		if err := tx.Rooms().Create(ctx, &room); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrRoomConflict
			}
			return err
		}

		if err := tx.Categories().UpdateTotals(ctx, categoryID, c.TotalRooms+1, c.AvailableRooms+1); err != nil {
			return err
		}

		after(func(ctx context.Context) { s.changed(ctx, categoryID) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &room, nil
}

// SetRoomStatus changes a room's physical status. Putting a room back in
// service (available or occupied) resolves to what the ledger says: occupied
// while an active reservation holds it, available otherwise.
func (s *Service) SetRoomStatus(ctx context.Context, id uuid.UUID, status domain.RoomStatus) (*domain.Room, error) {
	const op = "service.admin.SetRoomStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown room status"))
	}

	var updated domain.Room

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		r, err := tx.Rooms().Get(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrRoomNotFound)
		}

		if _, err := tx.Categories().GetForUpdate(ctx, r.CategoryID); err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}

		if status.InService() {
			held, err := tx.Reservations().CountActiveByRoom(ctx, id)
			if err != nil {
				return err
			}
			status = domain.RoomAvailable
			if held > 0 {
				status = domain.RoomOccupied
			}
		}

		if err := tx.Rooms().SetStatus(ctx, id, status); err != nil {
			return mapNotFound(err, ErrRoomNotFound)
		}

		r.Status = status
		updated = *r

		after(func(ctx context.Context) { s.changed(ctx, r.CategoryID) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}

// DeleteRoom removes a room no active reservation holds and shrinks its
// category's totals.
func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	const op = "service.admin.DeleteRoom"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		r, err := tx.Rooms().Get(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrRoomNotFound)
		}

		c, err := tx.Categories().GetForUpdate(ctx, r.CategoryID)
		if err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}

		held, err := tx.Reservations().CountActiveByRoom(ctx, id)
		if err != nil {
			return err
		}
		if held > 0 {
			return ErrRoomInUse
		}

		if err := tx.Rooms().Delete(ctx, id); err != nil {
			return mapNotFound(err, ErrRoomNotFound)
		}

		total := max(c.TotalRooms-1, 0)
		available, err := availableFor(ctx, tx, c.ID, total)
		if err != nil {
			return err
		}

		if err := tx.Categories().UpdateTotals(ctx, c.ID, total, available); err != nil {
			return err
		}

		after(func(ctx context.Context) { s.changed(ctx, c.ID) })
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) changed(ctx context.Context, categoryID uuid.UUID) {
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

// newRooms numbers n new rooms for c, skipping numbers existing already
// uses.
func newRooms(c domain.Category, existing []domain.Room, n int) []domain.Room {
	initial := strings.ToUpper(string(c.Type)[:1])

	taken := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		taken[r.Number] = struct{}{}
	}

	out := make([]domain.Room, 0, n)
	for i := 1; len(out) < n; i++ {
		number := initial + strconv.Itoa(i)
		if _, ok := taken[number]; ok {
			continue
		}
		out = append(out, domain.Room{
			ID:         uuid.New(),
			CategoryID: c.ID,
			Number:     number,
			Floor:      (i + 9) / 10,
			Status:     domain.RoomAvailable,
		})
	}

	return out
}

// shrink deletes n rooms that are available and held by nobody, newest
// first.
func shrink(ctx context.Context, tx repository.Tx, rooms []domain.Room, n int) error {
	var victims []uuid.UUID

	for _, r := range slices.Backward(rooms) {
		if len(victims) == n {
			break
		}
		if r.Status != domain.RoomAvailable {
			continue
		}
		held, err := tx.Reservations().CountActiveByRoom(ctx, r.ID)
		if err != nil {
			return err
		}
		if held == 0 {
			victims = append(victims, r.ID)
		}
	}

	if len(victims) < n {
		return ErrCannotShrink
	}

	for _, id := range victims {
		if err := tx.Rooms().Delete(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// availableFor is total minus the rooms the ledger says are held.
func availableFor(ctx context.Context, tx repository.Tx, categoryID uuid.UUID, total int) (int, error) {
	occupied, err := tx.Reservations().OccupiedRooms(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	return max(total-occupied, 0), nil
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
