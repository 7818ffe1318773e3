package service

import (
	"log/slog"

	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/repository"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
	"github.com/kirinyoku/inn-go/internal/service/admin"
	"github.com/kirinyoku/inn-go/internal/service/query"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/kirinyoku/inn-go/internal/service/seating"
)

type Services struct {
	Reservation *reservation.Service
	Seating     *seating.Service
	Query       *query.Service
	Admin       *admin.Service
}

type Config struct {
	Reservation reservation.Config
	Seating     seating.Config
	Query       query.Config
}

// Deps are the collaborators shared by the services. The redis-backed ones
// are nil when redis is not configured.
type Deps struct {
	Store    repository.Store
	Cache    *redisrepo.Cache
	PubSub   *redisrepo.InventoryPubSub
	Limiter  *redisrepo.SlidingWindowLimiter
	Verifier seating.Verifier
	Notifier notify.Notifier
	Logger   *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	// nil pointers must reach the services as nil interfaces
	var (
		rsvC    reservation.Cache
		seatC   seating.Cache
		adminC  admin.Cache
		pub     reservation.Publisher
		limiter reservation.Limiter
	)
	if d.Cache != nil {
		rsvC, seatC, adminC = d.Cache, d.Cache, d.Cache
	}
	if d.PubSub != nil {
		pub = d.PubSub
	}
	if d.Limiter != nil {
		limiter = d.Limiter
	}

	return &Services{
		Reservation: reservation.New(d.Store, rsvC, pub, limiter, d.Notifier, d.Logger, cfg.Reservation),
		Seating:     seating.New(d.Store, d.Verifier, seatC, pub, d.Notifier, d.Logger, cfg.Seating),
		Query:       query.New(d.Store, d.Cache, cfg.Query),
		Admin:       admin.New(d.Store, adminC, pub, d.Logger),
	}
}
