// Package memory is an in-process repository.Store. A unit of work holds the
// store mutex for its whole duration and works on a private copy of the data
// that replaces the shared copy only when fn succeeds.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type state struct {
	categories    map[uuid.UUID]domain.Category
	rooms         map[uuid.UUID]domain.Room
	reservations  map[uuid.UUID]domain.Reservation
	history       map[uuid.UUID][]domain.StatusChange
	seatPools     map[string]domain.SeatPool
	registrations map[uuid.UUID]domain.Registration
	roomSeq       int64
}

func newState() *state {
	return &state{
		categories:    map[uuid.UUID]domain.Category{},
		rooms:         map[uuid.UUID]domain.Room{},
		reservations:  map[uuid.UUID]domain.Reservation{},
		history:       map[uuid.UUID][]domain.StatusChange{},
		seatPools:     map[string]domain.SeatPool{},
		registrations: map[uuid.UUID]domain.Registration{},
	}
}

func (s *state) clone() *state {
	cp := &state{
		categories:    maps.Clone(s.categories),
		rooms:         maps.Clone(s.rooms),
		reservations:  maps.Clone(s.reservations),
		history:       make(map[uuid.UUID][]domain.StatusChange, len(s.history)),
		seatPools:     maps.Clone(s.seatPools),
		registrations: maps.Clone(s.registrations),
		roomSeq:       s.roomSeq,
	}
	for k, v := range s.history {
		cp.history[k] = append([]domain.StatusChange(nil), v...)
	}
	return cp
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

type Option func(*Store)

// WithClock sets the source of CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		st:  newState(),
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(ctx, &view{s: s, st: work}); err != nil {
		return err
	}

	s.st = work
	return nil
}

func (s *Store) auto() *view { return &view{s: s} }

func (s *Store) Categories() repository.CategoryRepo        { return &categoryRepo{s.auto()} }
func (s *Store) Rooms() repository.RoomRepo                 { return &roomRepo{s.auto()} }
func (s *Store) Reservations() repository.ReservationRepo   { return &reservationRepo{s.auto()} }
func (s *Store) SeatPools() repository.SeatPoolRepo         { return &seatPoolRepo{s.auto()} }
func (s *Store) Registrations() repository.RegistrationRepo { return &registrationRepo{s.auto()} }

// view is the data a repository call runs against: the private copy of a
// unit of work, or the shared state under the mutex when st is nil.
type view struct {
	s  *Store
	st *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

func (v *view) now() time.Time { return v.s.now().UTC() }

func (v *view) Categories() repository.CategoryRepo        { return &categoryRepo{v} }
func (v *view) Rooms() repository.RoomRepo                 { return &roomRepo{v} }
func (v *view) Reservations() repository.ReservationRepo   { return &reservationRepo{v} }
func (v *view) SeatPools() repository.SeatPoolRepo         { return &seatPoolRepo{v} }
func (v *view) Registrations() repository.RegistrationRepo { return &registrationRepo{v} }

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*view)(nil)
)
