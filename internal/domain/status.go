package domain

type ReservationStatus string

const (
	StatusPending    ReservationStatus = "pending"
	StatusConfirmed  ReservationStatus = "confirmed"
	StatusCheckedIn  ReservationStatus = "checked-in"
	StatusCheckedOut ReservationStatus = "checked-out"
	StatusCancelled  ReservationStatus = "cancelled"
)

// ActiveStatuses hold a room for their stay.
var ActiveStatuses = []ReservationStatus{StatusConfirmed, StatusCheckedIn}

// RevenueStatuses count towards revenue.
var RevenueStatuses = []ReservationStatus{StatusConfirmed, StatusCheckedIn, StatusCheckedOut}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

func (s ReservationStatus) Active() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

var transitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusCheckedIn, StatusCheckedOut, StatusCancelled},
	StatusCheckedIn:  {StatusCheckedOut, StatusCancelled},
	StatusCheckedOut: {StatusConfirmed},
}

// CanTransition reports whether from -> to is a legal move. A move to the
// current status is never legal.
func CanTransition(from, to ReservationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InventoryEffect is what a status move does to the room pool.
type InventoryEffect int

const (
	EffectNone InventoryEffect = iota
	EffectOccupy
	EffectRelease
)

func EffectOf(from, to ReservationStatus) InventoryEffect {
	switch {
	case !from.Active() && to.Active():
		return EffectOccupy
	case from.Active() && !to.Active():
		return EffectRelease
	}
	return EffectNone
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}
