package availability

import (
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
)

// Request is a demand against a pool: a stay for dated rooms, a quantity for
// counted seats. Pools ignore the dimension they do not have.
type Request struct {
	CheckIn  time.Time
	CheckOut time.Time
	RoomID   uuid.UUID
	Quantity int
}

// Pool is bookable inventory. RoomPool and SeatPool are the two kinds.
type Pool interface {
	Free(req Request) int
	Fits(req Request) bool
}

// RoomPool is the rooms of one category together with the reservations that
// may hold them.
type RoomPool struct {
	Rooms        []domain.Room
	Reservations []domain.Reservation
}

func (p RoomPool) Free(req Request) int {
	return len(p.FreeRooms(req))
}

func (p RoomPool) Fits(req Request) bool {
	if req.RoomID != uuid.Nil {
		_, ok := p.Pick(req)
		return ok
	}
	return p.Free(req) > 0
}

func (p RoomPool) FreeRooms(req Request) []domain.Room {
	conflicts := FindOverlapping(p.Reservations, uuid.Nil, req.CheckIn, req.CheckOut)
	return FreeRooms(p.Rooms, conflicts)
}

// Pick selects the room for req: the requested one when it is free, or the
// first free room in insertion order.
func (p RoomPool) Pick(req Request) (domain.Room, bool) {
	free := p.FreeRooms(req)
	if req.RoomID == uuid.Nil {
		if len(free) == 0 {
			return domain.Room{}, false
		}
		return free[0], true
	}

	for _, r := range free {
		if r.ID == req.RoomID {
			return r, true
		}
	}

	return domain.Room{}, false
}

// SeatPool adapts a counted pool to Pool.
type SeatPool struct {
	domain.SeatPool
}

func (p SeatPool) Free(Request) int {
	return p.AvailableSeats()
}

func (p SeatPool) Fits(req Request) bool {
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	return SeatsAvailable(p.SeatPool, qty)
}

var (
	_ Pool = RoomPool{}
	_ Pool = SeatPool{}
)
