package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/aggregate"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
)

type Config struct {
	CategoryTTL time.Duration
	StatsTTL    time.Duration
	SeatsTTL    time.Duration
}

type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	cfg   Config
}

// New builds the read side. cache may be nil, in which case every read goes
// to the store.
func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.CategoryTTL <= 0 {
		cfg.CategoryTTL = 60 * time.Second
	}

	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 30 * time.Second
	}

	if cfg.SeatsTTL <= 0 {
		cfg.SeatsTTL = 15 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

func cached[T any](
	ctx context.Context,
	s *Service,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if s.cache == nil {
		return loader(ctx)
	}
	return redisrepo.GetOrSetJSON(ctx, s.cache, key, ttl, loader)
}

// GetCategory retrieves a category card, utilizing the cache.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the category to retrieve.
//
// Returns:
//   - *domain.Category: the category with its cached room counters.
//   - error: query.ErrCategoryNotFound if the category does not exist.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	const op = "service.query.GetCategory"

	c, err := cached(ctx, s, redisrepo.KeyCategory(id), s.cfg.CategoryTTL,
		func(ctx context.Context) (domain.Category, error) {
			c, err := s.store.Categories().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Category{}, ErrCategoryNotFound
				}
				return domain.Category{}, err
			}
			return *c, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &c, nil
}

type CategoryStats struct {
	Totals     aggregate.Totals          `json:"totals"`
	Categories []aggregate.CategoryStats `json:"categories"`
}

// CategoryStats rolls the cached counters of every category up into
// occupancy figures.
func (s *Service) CategoryStats(ctx context.Context) (*CategoryStats, error) {
	const op = "service.query.CategoryStats"

	stats, err := cached(ctx, s, redisrepo.KeyCategoryStats(), s.cfg.StatsTTL,
		func(ctx context.Context) (CategoryStats, error) {
			cats, err := s.store.Categories().List(ctx)
			if err != nil {
				return CategoryStats{}, err
			}

			out := CategoryStats{
				Totals:     aggregate.AcrossCategories(cats),
				Categories: make([]aggregate.CategoryStats, 0, len(cats)),
			}
			for _, c := range cats {
				out.Categories = append(out.Categories, aggregate.ForCategory(c))
			}

			return out, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &stats, nil
}

func (s *Service) RoomStats(ctx context.Context) (*aggregate.RoomStats, error) {
	const op = "service.query.RoomStats"

	stats, err := cached(ctx, s, redisrepo.KeyRoomStats(), s.cfg.StatsTTL,
		func(ctx context.Context) (aggregate.RoomStats, error) {
			rooms, err := s.store.Rooms().List(ctx)
			if err != nil {
				return aggregate.RoomStats{}, err
			}
			return aggregate.Rooms(rooms), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &stats, nil
}

func (s *Service) BookingStats(ctx context.Context) (*aggregate.BookingStats, error) {
	const op = "service.query.BookingStats"

	stats, err := cached(ctx, s, redisrepo.KeyBookingStats(), s.cfg.StatsTTL,
		func(ctx context.Context) (aggregate.BookingStats, error) {
			totals, err := s.store.Reservations().StatusTotals(ctx)
			if err != nil {
				return aggregate.BookingStats{}, err
			}
			return aggregate.Bookings(totals), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &stats, nil
}

// Seats lists every seat pool with its free seats. The short TTL keeps the
// figure close to live; the booking itself never reads it.
func (s *Service) Seats(ctx context.Context) ([]aggregate.SeatStats, error) {
	const op = "service.query.Seats"

	stats, err := cached(ctx, s, redisrepo.KeySeatPools(), s.cfg.SeatsTTL,
		func(ctx context.Context) ([]aggregate.SeatStats, error) {
			pools, err := s.store.SeatPools().List(ctx)
			if err != nil {
				return nil, err
			}
			return aggregate.Seats(pools), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return stats, nil
}
