// Package availability answers whether inventory can take a new booking.
// It is pure: callers load rooms, reservations and pools inside the unit of
// work that will commit the decision, and pass them in.
package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
)

// Overlaps reports whether [aIn, aOut) and [bIn, bOut) intersect.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}

// ValidateStay rejects empty, inverted and past stays. today is the start of
// the current day.
func ValidateStay(checkIn, checkOut, today time.Time) error {
	if checkIn.IsZero() {
		return domain.Invalid("check_in", "is required")
	}

	if checkOut.IsZero() {
		return domain.Invalid("check_out", "is required")
	}

	in, out := domain.Day(checkIn), domain.Day(checkOut)
	if !in.Before(out) {
		return domain.Invalid("check_out", "must be after check-in date")
	}

	if in.Before(domain.Day(today)) {
		return domain.Invalid("check_in", "cannot be in the past")
	}

	return nil
}

// FindOverlapping returns the reservations in statuses whose stay intersects
// [checkIn, checkOut). A zero roomID matches every room. Empty statuses means
// the active set.
func FindOverlapping(
	reservations []domain.Reservation,
	roomID uuid.UUID,
	checkIn, checkOut time.Time,
	statuses ...domain.ReservationStatus,
) []domain.Reservation {
	if len(statuses) == 0 {
		statuses = domain.ActiveStatuses
	}

	var out []domain.Reservation
	for _, r := range reservations {
		if roomID != uuid.Nil && r.RoomID != roomID {
			continue
		}
		if !hasStatus(statuses, r.Status) {
			continue
		}
		if Overlaps(r.CheckIn, r.CheckOut, checkIn, checkOut) {
			out = append(out, r)
		}
	}

	return out
}

// FreeRooms returns the rooms not held by any conflicting reservation and not
// out of service, ordered by insertion sequence. An occupied room is still
// free for dates the ledger shows unheld.
func FreeRooms(rooms []domain.Room, conflicts []domain.Reservation) []domain.Room {
	taken := make(map[uuid.UUID]struct{}, len(conflicts))
	for _, c := range conflicts {
		taken[c.RoomID] = struct{}{}
	}

	var free []domain.Room
	for _, r := range rooms {
		if !r.Status.InService() {
			continue
		}
		if _, ok := taken[r.ID]; ok {
			continue
		}
		free = append(free, r)
	}

	sort.SliceStable(free, func(i, j int) bool {
		if free[i].Seq != free[j].Seq {
			return free[i].Seq < free[j].Seq
		}
		return free[i].Number < free[j].Number
	})

	return free
}

// SeatsAvailable reports whether qty more seats fit in the pool.
func SeatsAvailable(p domain.SeatPool, qty int) bool {
	return qty > 0 && p.AvailableSeats() >= qty
}

func hasStatus(set []domain.ReservationStatus, s domain.ReservationStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
