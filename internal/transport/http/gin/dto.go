package httpgin

import (
	"strings"
	"time"

	"github.com/kirinyoku/inn-go/internal/domain"
)

type AvailabilityRequest struct {
	CheckIn   string   `json:"check_in" binding:"required"`
	CheckOut  string   `json:"check_out" binding:"required"`
	Guests    int      `json:"guests" binding:"omitempty,gte=1"`
	Type      string   `json:"type"`
	PriceMin  float64  `json:"price_min" binding:"omitempty,gte=0"`
	PriceMax  float64  `json:"price_max" binding:"omitempty,gte=0"`
	Amenities []string `json:"amenities"`
}

type CheckCategoryRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Guests   int    `json:"guests" binding:"omitempty,gte=1"`
}

type CreateReservationRequest struct {
	CategoryID string `json:"category_id" binding:"omitempty,uuid"`
	RoomID     string `json:"room_id" binding:"omitempty,uuid"`
	GuestName  string `json:"guest_name" binding:"required"`
	GuestEmail string `json:"guest_email" binding:"required,email"`
	GuestPhone string `json:"guest_phone" binding:"required"`
	Guests     int    `json:"guests" binding:"required,gte=1"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Notes      string `json:"notes"`
	// PayLater creates a pending reservation that holds no room until an
	// admin confirms it.
	PayLater bool `json:"pay_later"`
}

type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Country  string `json:"country" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Category string `json:"category" binding:"required"`
}

type VerifyPaymentRequest struct {
	OrderRef   string `json:"order_id" binding:"required"`
	PaymentRef string `json:"payment_id" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

type ReviewRegistrationRequest struct {
	Notes string `json:"admin_notes"`
}

type SetReservationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetPaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

type CreateCategoryRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	BasePrice   float64  `json:"base_price" binding:"gte=0"`
	Discount    float64  `json:"discount" binding:"gte=0,lte=100"`
	Beds        int      `json:"beds" binding:"required,gte=1"`
	MaxGuests   int      `json:"max_guests" binding:"required,gte=1"`
	Type        string   `json:"type" binding:"required"`
	Amenities   []string `json:"amenities"`
	TotalRooms  int      `json:"total_rooms" binding:"gte=0"`
}

type SetCategoryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SetTotalRoomsRequest struct {
	TotalRooms *int `json:"total_rooms" binding:"required,gte=0"`
}

type CreateRoomRequest struct {
	CategoryID string `json:"category_id" binding:"required,uuid"`
	Number     string `json:"room_number" binding:"required"`
	Floor      int    `json:"floor" binding:"gte=0"`
}

type SetRoomStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpsertSeatPoolRequest struct {
	Category   string  `json:"category" binding:"required"`
	TotalSeats int     `json:"total_seats" binding:"gte=0"`
	Price      float64 `json:"price" binding:"gte=0"`
	Currency   string  `json:"currency" binding:"required,oneof=INR USD"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := parseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, domain.Invalid("check_in", "must be a date (YYYY-MM-DD)")
	}
	out, err := parseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, domain.Invalid("check_out", "must be a date (YYYY-MM-DD)")
	}
	return in, out, nil
}
