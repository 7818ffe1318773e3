package aggregate

import (
	"testing"

	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAcrossCategories(t *testing.T) {
	cats := []domain.Category{
		{TotalRooms: 10, AvailableRooms: 7, Status: domain.CategoryAvailable},
		{TotalRooms: 5, AvailableRooms: 5, Status: domain.CategoryMaintenance},
		{TotalRooms: 6, AvailableRooms: 1, Status: domain.CategoryAvailable},
	}

	got := AcrossCategories(cats)

	assert.Equal(t, 3, got.TotalCategories)
	assert.Equal(t, 2, got.AvailableCategories)
	assert.Equal(t, 1, got.MaintenanceCategories)
	assert.Equal(t, 21, got.TotalRooms)
	assert.Equal(t, 13, got.AvailableRooms)
	assert.Equal(t, 8, got.OccupiedRooms)
	assert.Equal(t, 38.1, got.OccupancyRate)
}

func TestOccupancyRate_EmptyInventory(t *testing.T) {
	assert.Equal(t, 0.0, OccupancyRate(0, 0))
	assert.Equal(t, 0.0, AcrossCategories(nil).OccupancyRate)
	assert.Equal(t, 33.33, OccupancyRate(1, 3))
}

func TestForCategory(t *testing.T) {
	got := ForCategory(domain.Category{Name: "Suite", TotalRooms: 4, AvailableRooms: 1})

	assert.Equal(t, 3, got.Occupied)
	assert.Equal(t, 25, got.Percentage)
	assert.Equal(t, 0, ForCategory(domain.Category{}).Percentage)
}

func TestBookings_RevenueExcludesPendingAndCancelled(t *testing.T) {
	totals := []domain.StatusTotal{
		{Status: domain.StatusPending, Count: 2, Sum: 500},
		{Status: domain.StatusConfirmed, Count: 3, Sum: 300},
		{Status: domain.StatusCheckedIn, Count: 1, Sum: 120.5},
		{Status: domain.StatusCheckedOut, Count: 4, Sum: 400},
		{Status: domain.StatusCancelled, Count: 5, Sum: 999},
	}

	got := Bookings(totals)

	assert.Equal(t, int64(15), got.TotalBookings)
	assert.Equal(t, int64(2), got.PendingBookings)
	assert.Equal(t, int64(3), got.ConfirmedBookings)
	assert.Equal(t, int64(1), got.CheckedInBookings)
	assert.Equal(t, int64(5), got.CancelledBookings)
	assert.Equal(t, 820.5, got.Revenue)
}

func TestRoomsAndSeats(t *testing.T) {
	rs := Rooms([]domain.Room{
		{Status: domain.RoomAvailable},
		{Status: domain.RoomOccupied},
		{Status: domain.RoomOccupied},
		{Status: domain.RoomCleaning},
	})
	assert.Equal(t, RoomStats{TotalRooms: 4, AvailableRooms: 1, OccupiedRooms: 2, CleaningRooms: 1}, rs)

	ss := Seats([]domain.SeatPool{{Category: "student", TotalSeats: 50, BookedSeats: 10}})
	assert.Equal(t, 40, ss[0].Available)
	assert.Equal(t, 80, ss[0].Percentage)
}

func TestRegistrations_RevenuePerCurrency(t *testing.T) {
	s := Registrations([]domain.RegistrationTotal{
		{Status: domain.RegistrationCompleted, Currency: domain.CurrencyINR, Count: 2, Amount: 32000},
		{Status: domain.RegistrationCompleted, Currency: domain.CurrencyUSD, Count: 1, Amount: 500},
		{Status: domain.RegistrationPending, Currency: domain.CurrencyINR, Count: 3, Amount: 63000},
		{Status: domain.RegistrationRejected, Currency: domain.CurrencyUSD, Count: 1, Amount: 500},
	})

	assert.EqualValues(t, 7, s.TotalRegistrations)
	assert.EqualValues(t, 3, s.Completed)
	assert.EqualValues(t, 3, s.Pending)
	assert.EqualValues(t, 1, s.Rejected)
	assert.Equal(t, map[domain.Currency]float64{domain.CurrencyINR: 32000, domain.CurrencyUSD: 500}, s.Revenue)

	empty := Registrations(nil)
	assert.NotNil(t, empty.ByStatus)
	assert.Empty(t, empty.Revenue)
}
