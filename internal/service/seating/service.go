// Package seating books counted seats out of fixed pools. A seat is taken
// only when a registration's payment is verified.
package seating

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/inn-go/internal/aggregate"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/metrics"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/repository"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
	"github.com/kirinyoku/inn-go/internal/uow"
)

// Verifier decides whether a payment reference was really issued for an
// order. Signature derivation lives behind it.
type Verifier interface {
	Verify(ctx context.Context, orderRef, paymentRef, signature string) (bool, error)
}

type Cache interface {
	InvalidateSeats(ctx context.Context) error
}

type Publisher interface {
	PublishInventoryChanged(ctx context.Context, kind, key string) error
}

type Config struct {
	Now func() time.Time
	// RegistrationTTL is how long a registration may stay pending before
	// ExpirePending cancels it.
	RegistrationTTL time.Duration
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	verifier Verifier
	cache    Cache
	pubsub   Publisher
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration
}

func New(
	store repository.Store,
	verifier Verifier,
	cache Cache,
	pubsub Publisher,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RegistrationTTL <= 0 {
		cfg.RegistrationTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		verifier: verifier,
		cache:    cache,
		pubsub:   pubsub,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "seating")),
		now:      cfg.Now,
		ttl:      cfg.RegistrationTTL,
	}
}

// DefaultPools are the pools Seed creates when they are missing.
var DefaultPools = []domain.SeatPool{
	{Category: "foreigner", TotalSeats: 60, Price: 500, Currency: domain.CurrencyUSD},
	{Category: "indian", TotalSeats: 60, Price: 21000, Currency: domain.CurrencyINR},
	{Category: "student", TotalSeats: 50, Price: 11000, Currency: domain.CurrencyINR},
}

// Seed creates every default pool that does not exist yet. Existing pools
// are left untouched.
func (s *Service) Seed(ctx context.Context) error {
	const op = "service.seating.Seed"

	return s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		for _, p := range DefaultPools {
			_, err := tx.SeatPools().Get(ctx, p.Category)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, err)
			}

			pool := p
			if err := tx.SeatPools().Upsert(ctx, &pool); err != nil {
				return fmt.Errorf("%s:%w", op, err)
			}
		}

		after(func(ctx context.Context) { s.seatsChanged(ctx, "") })
		return nil
	})
}

// BookSeats takes qty seats of pool category in one conditional update.
//
// Returns:
//   - *domain.SeatPool: the pool after the booking.
//   - error: ErrPoolNotFound, ErrSoldOut, or a *domain.ValidationError.
func (s *Service) BookSeats(ctx context.Context, category string, qty int) (_ *domain.SeatPool, err error) {
	const op = "service.seating.BookSeats"

	defer func() { metrics.SeatBookings.WithLabelValues(metrics.Outcome(err)).Inc() }()

	if qty < 1 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("quantity", "must be at least 1"))
	}

	var pool domain.SeatPool

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		p, err := tx.SeatPools().Book(ctx, category, qty)
		if err != nil {
			return mapPoolErr(err)
		}
		pool = *p

		after(func(ctx context.Context) { s.seatsChanged(ctx, category) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &pool, nil
}

// ReleaseSeats gives back qty seats. The booked count never goes below zero.
func (s *Service) ReleaseSeats(ctx context.Context, category string, qty int) (*domain.SeatPool, error) {
	const op = "service.seating.ReleaseSeats"

	if qty < 1 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("quantity", "must be at least 1"))
	}

	var pool domain.SeatPool

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		p, err := tx.SeatPools().Release(ctx, category, qty)
		if err != nil {
			return mapPoolErr(err)
		}
		pool = *p

		after(func(ctx context.Context) { s.seatsChanged(ctx, category) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &pool, nil
}

// UpsertPool creates a pool or changes its size and price. The booked count
// is kept; a total below it is refused.
func (s *Service) UpsertPool(ctx context.Context, p domain.SeatPool) (*domain.SeatPool, error) {
	const op = "service.seating.UpsertPool"

	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	switch {
	case p.Category == "":
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("category", "is required"))
	case p.TotalSeats < 0:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("total_seats", "cannot be negative"))
	case p.Price < 0:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("price", "cannot be negative"))
	case p.Currency != domain.CurrencyINR && p.Currency != domain.CurrencyUSD:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("currency", "must be INR or USD"))
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.SeatPools().Upsert(ctx, &p); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: total seats below booked seats", domain.ErrConflict)
			}
			return err
		}

		after(func(ctx context.Context) { s.seatsChanged(ctx, p.Category) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &p, nil
}

// Availability lists every pool with its free seats.
func (s *Service) Availability(ctx context.Context) ([]aggregate.SeatStats, error) {
	const op = "service.seating.Availability"

	pools, err := s.store.SeatPools().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return aggregate.Seats(pools), nil
}

func (s *Service) seatsChanged(ctx context.Context, category string) {
	if s.cache != nil {
		if err := s.cache.InvalidateSeats(ctx); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed", slog.String("error", err.Error()))
		}
	}

	if s.pubsub != nil {
		_ = s.pubsub.PublishInventoryChanged(ctx, redisrepo.KindSeatPool, category)
	}
}

func mapPoolErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrPoolNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrSoldOut
	}
	return err
}
