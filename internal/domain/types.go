package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomCleaning    RoomStatus = "cleaning"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomCleaning:
		return true
	}
	return false
}

// InService reports whether the room can take bookings at all. Maintenance
// and cleaning take a room out of the pool until an admin puts it back.
func (s RoomStatus) InService() bool {
	return s == RoomAvailable || s == RoomOccupied
}

type CategoryStatus string

const (
	CategoryAvailable   CategoryStatus = "available"
	CategoryMaintenance CategoryStatus = "maintenance"
)

type CategoryType string

const (
	TypeSingle    CategoryType = "single"
	TypeDouble    CategoryType = "double"
	TypeSuite     CategoryType = "suite"
	TypeDormitory CategoryType = "dormitory"
)

func (t CategoryType) Valid() bool {
	switch t {
	case TypeSingle, TypeDouble, TypeSuite, TypeDormitory:
		return true
	}
	return false
}

// Room is a single bookable physical room. Status is a coarse occupancy
// cache; the reservation ledger decides date-ranged availability.
type Room struct {
	ID         uuid.UUID  `json:"id"`
	CategoryID uuid.UUID  `json:"category_id"`
	Number     string     `json:"number"`
	Floor      int        `json:"floor"`
	Status     RoomStatus `json:"status"`
	Seq        int64      `json:"seq"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Category groups rooms that share price and amenities. AvailableRooms is a
// cached counter kept in step with the ledger by the coordinators.
type Category struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Images         []string       `json:"images"`
	BasePrice      float64        `json:"base_price"`
	Discount       float64        `json:"discount"`
	Beds           int            `json:"beds"`
	MaxGuests      int            `json:"max_guests"`
	Type           CategoryType   `json:"type"`
	Amenities      []string       `json:"amenities"`
	TotalRooms     int            `json:"total_rooms"`
	AvailableRooms int            `json:"available_rooms"`
	Status         CategoryStatus `json:"status"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (c Category) FinalPrice() float64 {
	return c.BasePrice - c.BasePrice*c.Discount/100
}

// HasAmenities reports whether the category offers every amenity in want.
func (c Category) HasAmenities(want []string) bool {
	have := make(map[string]struct{}, len(c.Amenities))
	for _, a := range c.Amenities {
		have[a] = struct{}{}
	}
	for _, a := range want {
		if _, ok := have[a]; !ok {
			return false
		}
	}
	return true
}

type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

// SeatPool is non-dated counted inventory.
type SeatPool struct {
	Category    string    `json:"category"`
	TotalSeats  int       `json:"total_seats"`
	BookedSeats int       `json:"booked_seats"`
	Price       float64   `json:"price"`
	Currency    Currency  `json:"currency"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p SeatPool) AvailableSeats() int {
	return p.TotalSeats - p.BookedSeats
}

type Reservation struct {
	ID            uuid.UUID         `json:"id"`
	RoomID        uuid.UUID         `json:"room_id"`
	CategoryID    uuid.UUID         `json:"category_id"`
	GuestName     string            `json:"guest_name"`
	GuestEmail    string            `json:"guest_email"`
	GuestPhone    string            `json:"guest_phone"`
	Guests        int               `json:"guests"`
	CheckIn       time.Time         `json:"check_in"`
	CheckOut      time.Time         `json:"check_out"`
	Notes         string            `json:"notes,omitempty"`
	TotalPrice    float64           `json:"total_price"`
	Status        ReservationStatus `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	CreatedBy     string            `json:"created_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// StatusChange is one entry of a reservation's status history.
type StatusChange struct {
	ReservationID uuid.UUID         `json:"reservation_id"`
	From          ReservationStatus `json:"from"`
	To            ReservationStatus `json:"to"`
	At            time.Time         `json:"at"`
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationCompleted RegistrationStatus = "completed"
	RegistrationFailed    RegistrationStatus = "failed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationRejected  RegistrationStatus = "rejected"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationCompleted, RegistrationFailed, RegistrationCancelled, RegistrationRejected:
		return true
	}
	return false
}

// Open registrations count against the one-per-email rule.
func (s RegistrationStatus) Open() bool {
	return s == RegistrationPending || s == RegistrationCompleted
}

// Registration claims one seat of a pool. The seat is committed when the
// payment is verified, not when the registration is created.
type Registration struct {
	ID            uuid.UUID          `json:"id"`
	FullName      string             `json:"full_name"`
	Email         string             `json:"email"`
	Country       string             `json:"country"`
	Phone         string             `json:"phone"`
	Category      string             `json:"category"`
	Quantity      int                `json:"quantity"`
	Amount        float64            `json:"amount"`
	Currency      Currency           `json:"currency"`
	OrderRef      string             `json:"order_ref"`
	PaymentRef    string             `json:"payment_ref,omitempty"`
	Status        RegistrationStatus `json:"status"`
	TransactionID string             `json:"transaction_id,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	AdminNotes    string             `json:"admin_notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type RegistrationFilter struct {
	Status RegistrationStatus
	Limit  int
	Offset int
}

// RegistrationTotal is the count and summed amount of registrations in one
// status and currency.
type RegistrationTotal struct {
	Status   RegistrationStatus `json:"status"`
	Currency Currency           `json:"currency"`
	Count    int64              `json:"count"`
	Amount   float64            `json:"amount"`
}

// StatusTotal is the count and summed price of reservations in one status.
type StatusTotal struct {
	Status ReservationStatus `json:"status"`
	Count  int64             `json:"count"`
	Sum    float64           `json:"sum"`
}

type ReservationFilter struct {
	Search string
	Status ReservationStatus
	Limit  int
	Offset int
}

// OverlapQuery selects reservations of a category (and optionally one room)
// whose stay intersects [CheckIn, CheckOut).
type OverlapQuery struct {
	CategoryID uuid.UUID
	RoomID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Statuses   []ReservationStatus
}
