package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps_HalfOpen(t *testing.T) {
	assert.True(t, Overlaps(day(6, 1), day(6, 3), day(6, 2), day(6, 4)))
	assert.True(t, Overlaps(day(6, 1), day(6, 5), day(6, 2), day(6, 3)))
	assert.False(t, Overlaps(day(6, 1), day(6, 3), day(6, 3), day(6, 5)), "checkout day equals next check-in")
	assert.False(t, Overlaps(day(6, 3), day(6, 5), day(6, 1), day(6, 3)))
}

func TestValidateStay(t *testing.T) {
	today := day(5, 20)

	require.NoError(t, ValidateStay(day(6, 1), day(6, 2), today))
	require.NoError(t, ValidateStay(today.Add(15*time.Hour), day(5, 21), today.Add(18*time.Hour)))

	err := ValidateStay(day(6, 1), day(6, 1), today)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "check_out", ve.Field)

	assert.ErrorIs(t, ValidateStay(day(6, 3), day(6, 1), today), domain.ErrInvalidRequest)
	assert.ErrorIs(t, ValidateStay(day(5, 19), day(5, 21), today), domain.ErrInvalidRequest)
	assert.ErrorIs(t, ValidateStay(time.Time{}, day(5, 21), today), domain.ErrInvalidRequest)
}

func TestFindOverlapping_IgnoresInactiveAndOtherRooms(t *testing.T) {
	roomA, roomB := uuid.New(), uuid.New()
	rs := []domain.Reservation{
		{RoomID: roomA, Status: domain.StatusConfirmed, CheckIn: day(6, 1), CheckOut: day(6, 3)},
		{RoomID: roomA, Status: domain.StatusCancelled, CheckIn: day(6, 1), CheckOut: day(6, 3)},
		{RoomID: roomA, Status: domain.StatusPending, CheckIn: day(6, 1), CheckOut: day(6, 3)},
		{RoomID: roomB, Status: domain.StatusCheckedIn, CheckIn: day(6, 2), CheckOut: day(6, 6)},
		{RoomID: roomB, Status: domain.StatusCheckedOut, CheckIn: day(6, 2), CheckOut: day(6, 6)},
	}

	all := FindOverlapping(rs, uuid.Nil, day(6, 2), day(6, 4))
	assert.Len(t, all, 2)

	onlyA := FindOverlapping(rs, roomA, day(6, 2), day(6, 4))
	require.Len(t, onlyA, 1)
	assert.Equal(t, domain.StatusConfirmed, onlyA[0].Status)

	assert.Empty(t, FindOverlapping(rs, roomA, day(6, 3), day(6, 4)))
}

func TestFreeRooms_SkipsTakenAndOutOfService(t *testing.T) {
	r1 := domain.Room{ID: uuid.New(), Number: "S1", Seq: 1, Status: domain.RoomOccupied}
	r2 := domain.Room{ID: uuid.New(), Number: "S2", Seq: 2, Status: domain.RoomAvailable}
	r3 := domain.Room{ID: uuid.New(), Number: "S3", Seq: 3, Status: domain.RoomMaintenance}
	r4 := domain.Room{ID: uuid.New(), Number: "S4", Seq: 0, Status: domain.RoomAvailable}
	r5 := domain.Room{ID: uuid.New(), Number: "S5", Seq: 5, Status: domain.RoomCleaning}

	free := FreeRooms(
		[]domain.Room{r3, r2, r1, r4, r5},
		[]domain.Reservation{{RoomID: r2.ID}},
	)

	require.Len(t, free, 2)
	assert.Equal(t, r4.ID, free[0].ID)
	assert.Equal(t, r1.ID, free[1].ID)
}

func TestRoomPool_Pick(t *testing.T) {
	r1 := domain.Room{ID: uuid.New(), Seq: 1, Status: domain.RoomAvailable}
	r2 := domain.Room{ID: uuid.New(), Seq: 2, Status: domain.RoomAvailable}
	pool := RoomPool{
		Rooms: []domain.Room{r1, r2},
		Reservations: []domain.Reservation{
			{RoomID: r1.ID, Status: domain.StatusConfirmed, CheckIn: day(6, 1), CheckOut: day(6, 3)},
		},
	}

	got, ok := pool.Pick(Request{CheckIn: day(6, 2), CheckOut: day(6, 4)})
	require.True(t, ok)
	assert.Equal(t, r2.ID, got.ID)

	_, ok = pool.Pick(Request{CheckIn: day(6, 2), CheckOut: day(6, 4), RoomID: r1.ID})
	assert.False(t, ok)

	got, ok = pool.Pick(Request{CheckIn: day(6, 3), CheckOut: day(6, 4), RoomID: r1.ID})
	require.True(t, ok)
	assert.Equal(t, r1.ID, got.ID)

	assert.Equal(t, 1, pool.Free(Request{CheckIn: day(6, 1), CheckOut: day(6, 2)}))
}

func TestSeatPool_Fits(t *testing.T) {
	var p Pool = SeatPool{domain.SeatPool{TotalSeats: 60, BookedSeats: 59}}

	assert.True(t, p.Fits(Request{Quantity: 1}))
	assert.False(t, p.Fits(Request{Quantity: 2}))
	assert.Equal(t, 1, p.Free(Request{}))
	assert.False(t, SeatsAvailable(domain.SeatPool{TotalSeats: 1}, 0))
}

func TestSearch(t *testing.T) {
	single := domain.Category{
		ID: uuid.New(), Type: domain.TypeSingle, Status: domain.CategoryAvailable,
		MaxGuests: 1, BasePrice: 80, Amenities: []string{"wifi"},
	}
	suite := domain.Category{
		ID: uuid.New(), Type: domain.TypeSuite, Status: domain.CategoryAvailable,
		MaxGuests: 4, BasePrice: 300, Amenities: []string{"wifi", "bath"},
	}
	closed := domain.Category{
		ID: uuid.New(), Type: domain.TypeDouble, Status: domain.CategoryMaintenance, MaxGuests: 2,
	}

	sRoom := domain.Room{ID: uuid.New(), CategoryID: single.ID, Status: domain.RoomAvailable}
	suRoom := domain.Room{ID: uuid.New(), CategoryID: suite.ID, Status: domain.RoomAvailable}
	cRoom := domain.Room{ID: uuid.New(), CategoryID: closed.ID, Status: domain.RoomAvailable}

	rooms := map[uuid.UUID][]domain.Room{
		single.ID: {sRoom},
		suite.ID:  {suRoom},
		closed.ID: {cRoom},
	}
	reservations := map[uuid.UUID][]domain.Reservation{
		single.ID: {{RoomID: sRoom.ID, Status: domain.StatusConfirmed, CheckIn: day(6, 1), CheckOut: day(6, 5)}},
	}
	cats := []domain.Category{single, suite, closed}

	got := Search(Query{CheckIn: day(6, 2), CheckOut: day(6, 3)}, cats, rooms, reservations)
	require.Len(t, got, 1)
	assert.Equal(t, suite.ID, got[0].Category.ID)
	assert.Equal(t, 1, got[0].AvailableRoomsCount)

	got = Search(Query{CheckIn: day(6, 10), CheckOut: day(6, 11), Guests: 2}, cats, rooms, reservations)
	require.Len(t, got, 1)
	assert.Equal(t, suite.ID, got[0].Category.ID)

	got = Search(Query{CheckIn: day(6, 10), CheckOut: day(6, 11), PriceMax: 100}, cats, rooms, reservations)
	require.Len(t, got, 1)
	assert.Equal(t, single.ID, got[0].Category.ID)

	got = Search(Query{CheckIn: day(6, 10), CheckOut: day(6, 11), Amenities: []string{"bath"}}, cats, rooms, reservations)
	require.Len(t, got, 1)
	assert.Equal(t, suite.ID, got[0].Category.ID)
}
