package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
)

type CategoryRepo interface {
	Create(ctx context.Context, c *domain.Category) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	// GetForUpdate loads the category and locks it until the unit of work
	// ends. All allocation decisions for the category serialize on it.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	UpdateTotals(ctx context.Context, id uuid.UUID, total, available int) error
	SetStatus(ctx context.Context, id uuid.UUID, status domain.CategoryStatus) error
	// AdjustAvailable adds delta to AvailableRooms. It returns ErrConflict
	// when the result would leave [0, TotalRooms].
	AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RoomRepo interface {
	Create(ctx context.Context, r *domain.Room) error
	// CreateMany inserts rooms in one round trip. Rooms whose number is
	// already taken in the category are skipped.
	CreateMany(ctx context.Context, rooms []domain.Room) (int, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	// ListByCategory returns rooms ordered by insertion sequence.
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.RoomStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReservationRepo interface {
	Create(ctx context.Context, r *domain.Reservation) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	FindOverlapping(ctx context.Context, q domain.OverlapQuery) ([]domain.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus, roomID uuid.UUID) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
	AppendHistory(ctx context.Context, c domain.StatusChange) error
	History(ctx context.Context, id uuid.UUID) ([]domain.StatusChange, error)
	List(ctx context.Context, f domain.ReservationFilter) ([]domain.Reservation, int, error)
	CountActiveByCategory(ctx context.Context, categoryID uuid.UUID) (int, error)
	CountActiveByRoom(ctx context.Context, roomID uuid.UUID) (int, error)
	// OccupiedRooms counts distinct rooms of the category held by an active
	// reservation.
	OccupiedRooms(ctx context.Context, categoryID uuid.UUID) (int, error)
	StatusTotals(ctx context.Context) ([]domain.StatusTotal, error)
}

type SeatPoolRepo interface {
	Upsert(ctx context.Context, p *domain.SeatPool) error
	Get(ctx context.Context, category string) (*domain.SeatPool, error)
	List(ctx context.Context) ([]domain.SeatPool, error)
	// Book adds qty to BookedSeats only if the pool still has room for it,
	// otherwise ErrConflict.
	Book(ctx context.Context, category string, qty int) (*domain.SeatPool, error)
	// Release subtracts qty from BookedSeats, clamped at zero.
	Release(ctx context.Context, category string, qty int) (*domain.SeatPool, error)
}

type RegistrationRepo interface {
	Create(ctx context.Context, r *domain.Registration) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error)
	GetByOrderRef(ctx context.Context, orderRef string) (*domain.Registration, error)
	GetByOrderRefForUpdate(ctx context.Context, orderRef string) (*domain.Registration, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Registration, error)
	FindOpenByEmail(ctx context.Context, email string) (*domain.Registration, error)
	Update(ctx context.Context, r *domain.Registration) error
	ExpirePending(ctx context.Context, createdBefore time.Time) ([]domain.Registration, error)
	List(ctx context.Context, f domain.RegistrationFilter) ([]domain.Registration, int, error)
	StatusTotals(ctx context.Context) ([]domain.RegistrationTotal, error)
}

// Tx is the set of repositories bound to one unit of work.
type Tx interface {
	Categories() CategoryRepo
	Rooms() RoomRepo
	Reservations() ReservationRepo
	SeatPools() SeatPoolRepo
	Registrations() RegistrationRepo
}

// Store runs units of work. Everything fn writes commits together or not at
// all; fn may be re-run when the backend reports a serialization failure.
type Store interface {
	Tx
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
