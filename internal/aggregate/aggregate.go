// Package aggregate rolls per-unit state up into category and ledger
// statistics. Every function is a pure read-side computation.
package aggregate

import (
	"math"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
)

type CategoryStats struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Total      int       `json:"total"`
	Available  int       `json:"available"`
	Occupied   int       `json:"occupied"`
	Percentage int       `json:"percentage"`
}

type Totals struct {
	TotalCategories       int     `json:"total_categories"`
	AvailableCategories   int     `json:"available_categories"`
	MaintenanceCategories int     `json:"maintenance_categories"`
	TotalRooms            int     `json:"total_rooms"`
	AvailableRooms        int     `json:"available_rooms"`
	OccupiedRooms         int     `json:"occupied_rooms"`
	OccupancyRate         float64 `json:"occupancy_rate"`
}

type BookingStats struct {
	TotalBookings      int64   `json:"total_bookings"`
	PendingBookings    int64   `json:"pending_bookings"`
	ConfirmedBookings  int64   `json:"confirmed_bookings"`
	CheckedInBookings  int64   `json:"checked_in_bookings"`
	CheckedOutBookings int64   `json:"checked_out_bookings"`
	CancelledBookings  int64   `json:"cancelled_bookings"`
	Revenue            float64 `json:"revenue"`
}

type RoomStats struct {
	TotalRooms       int `json:"total_rooms"`
	AvailableRooms   int `json:"available_rooms"`
	OccupiedRooms    int `json:"occupied_rooms"`
	MaintenanceRooms int `json:"maintenance_rooms"`
	CleaningRooms    int `json:"cleaning_rooms"`
}

type SeatStats struct {
	Category   string          `json:"category"`
	Total      int             `json:"total"`
	Available  int             `json:"available"`
	Price      float64         `json:"price"`
	Currency   domain.Currency `json:"currency"`
	Percentage int             `json:"percentage"`
}

func ForCategory(c domain.Category) CategoryStats {
	return CategoryStats{
		CategoryID: c.ID,
		Name:       c.Name,
		Total:      c.TotalRooms,
		Available:  c.AvailableRooms,
		Occupied:   c.TotalRooms - c.AvailableRooms,
		Percentage: percent(c.AvailableRooms, c.TotalRooms),
	}
}

func AcrossCategories(cats []domain.Category) Totals {
	var t Totals
	for _, c := range cats {
		t.TotalCategories++
		switch c.Status {
		case domain.CategoryAvailable:
			t.AvailableCategories++
		case domain.CategoryMaintenance:
			t.MaintenanceCategories++
		}
		t.TotalRooms += c.TotalRooms
		t.AvailableRooms += c.AvailableRooms
	}

	t.OccupiedRooms = t.TotalRooms - t.AvailableRooms
	t.OccupancyRate = OccupancyRate(t.OccupiedRooms, t.TotalRooms)

	return t
}

// OccupancyRate is occupied/total*100 rounded to two decimals, 0 for an
// empty inventory.
func OccupancyRate(occupied, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(occupied)/float64(total)*100*100) / 100
}

// Revenue sums reservations that are or were in house.
func Revenue(totals []domain.StatusTotal) float64 {
	var sum float64
	for _, t := range totals {
		switch t.Status {
		case domain.StatusConfirmed, domain.StatusCheckedIn, domain.StatusCheckedOut:
			sum += t.Sum
		}
	}
	return math.Round(sum*100) / 100
}

func Bookings(totals []domain.StatusTotal) BookingStats {
	var s BookingStats
	for _, t := range totals {
		s.TotalBookings += t.Count
		switch t.Status {
		case domain.StatusPending:
			s.PendingBookings = t.Count
		case domain.StatusConfirmed:
			s.ConfirmedBookings = t.Count
		case domain.StatusCheckedIn:
			s.CheckedInBookings = t.Count
		case domain.StatusCheckedOut:
			s.CheckedOutBookings = t.Count
		case domain.StatusCancelled:
			s.CancelledBookings = t.Count
		}
	}
	s.Revenue = Revenue(totals)

	return s
}

func Rooms(rooms []domain.Room) RoomStats {
	s := RoomStats{TotalRooms: len(rooms)}
	for _, r := range rooms {
		switch r.Status {
		case domain.RoomAvailable:
			s.AvailableRooms++
		case domain.RoomOccupied:
			s.OccupiedRooms++
		case domain.RoomMaintenance:
			s.MaintenanceRooms++
		case domain.RoomCleaning:
			s.CleaningRooms++
		}
	}
	return s
}

func Seats(pools []domain.SeatPool) []SeatStats {
	out := make([]SeatStats, 0, len(pools))
	for _, p := range pools {
		out = append(out, SeatStats{
			Category:   p.Category,
			Total:      p.TotalSeats,
			Available:  p.AvailableSeats(),
			Price:      p.Price,
			Currency:   p.Currency,
			Percentage: percent(p.AvailableSeats(), p.TotalSeats),
		})
	}
	return out
}

type RegistrationStats struct {
	ByStatus           []domain.RegistrationTotal  `json:"by_status"`
	TotalRegistrations int64                       `json:"total_registrations"`
	Pending            int64                       `json:"pending"`
	Completed          int64                       `json:"completed"`
	Rejected           int64                       `json:"rejected"`
	Revenue            map[domain.Currency]float64 `json:"revenue"`
}

// Registrations rolls status totals up. Revenue is what completed
// registrations paid, kept apart per currency.
func Registrations(totals []domain.RegistrationTotal) RegistrationStats {
	s := RegistrationStats{
		ByStatus: totals,
		Revenue:  map[domain.Currency]float64{},
	}
	if s.ByStatus == nil {
		s.ByStatus = []domain.RegistrationTotal{}
	}

	for _, t := range totals {
		s.TotalRegistrations += t.Count
		switch t.Status {
		case domain.RegistrationPending:
			s.Pending += t.Count
		case domain.RegistrationCompleted:
			s.Completed += t.Count
			s.Revenue[t.Currency] += t.Amount
		case domain.RegistrationRejected:
			s.Rejected += t.Count
		}
	}
	for c, v := range s.Revenue {
		s.Revenue[c] = math.Round(v*100) / 100
	}

	return s
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
