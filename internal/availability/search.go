package availability

import (
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
)

// Query filters a category search for a stay.
type Query struct {
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Type      domain.CategoryType
	PriceMin  float64
	PriceMax  float64
	Amenities []string
}

type CategoryAvailability struct {
	Category            domain.Category `json:"category"`
	AvailableRoomsCount int             `json:"available_rooms_count"`
	Rooms               []domain.Room   `json:"available_rooms"`
}

// Matches applies the non-dated filters of q to a category.
func (q Query) Matches(c domain.Category) bool {
	if c.Status != domain.CategoryAvailable {
		return false
	}

	if q.Type != "" && c.Type != q.Type {
		return false
	}

	if q.Guests > 0 && c.MaxGuests < q.Guests {
		return false
	}

	if q.PriceMin > 0 && c.BasePrice < q.PriceMin {
		return false
	}

	if q.PriceMax > 0 && c.BasePrice > q.PriceMax {
		return false
	}

	return len(q.Amenities) == 0 || c.HasAmenities(q.Amenities)
}

// Search returns the categories matching q that still have a free room for
// the stay. rooms and reservations are keyed by category id.
func Search(
	q Query,
	categories []domain.Category,
	rooms map[uuid.UUID][]domain.Room,
	reservations map[uuid.UUID][]domain.Reservation,
) []CategoryAvailability {
	req := Request{CheckIn: q.CheckIn, CheckOut: q.CheckOut}

	out := make([]CategoryAvailability, 0, len(categories))
	for _, c := range categories {
		if !q.Matches(c) {
			continue
		}

		pool := RoomPool{Rooms: rooms[c.ID], Reservations: reservations[c.ID]}
		free := pool.FreeRooms(req)
		if len(free) == 0 {
			continue
		}

		out = append(out, CategoryAvailability{
			Category:            c,
			AvailableRoomsCount: len(free),
			Rooms:               free,
		})
	}

	return out
}
