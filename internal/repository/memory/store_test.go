package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedCategory(t *testing.T, s *Store, rooms int) (domain.Category, []domain.Room) {
	t.Helper()
	ctx := context.Background()

	c := domain.Category{
		ID:             uuid.New(),
		Name:           "Deluxe",
		BasePrice:      100,
		Beds:           1,
		MaxGuests:      2,
		Type:           domain.TypeDouble,
		TotalRooms:     rooms,
		AvailableRooms: rooms,
		Status:         domain.CategoryAvailable,
	}
	require.NoError(t, s.Categories().Create(ctx, &c))

	batch := make([]domain.Room, rooms)
	for i := range batch {
		batch[i] = domain.Room{
			ID:         uuid.New(),
			CategoryID: c.ID,
			Number:     "D" + string(rune('1'+i)),
			Floor:      1,
			Status:     domain.RoomAvailable,
		}
	}
	n, err := s.Rooms().CreateMany(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, rooms, n)

	return c, batch
}

func TestRunTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	c, _ := seedCategory(t, s, 2)
	boom := errors.New("boom")

	err := s.RunTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Categories().AdjustAvailable(ctx, c.ID, -1))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Categories().Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableRooms)
}

func TestAdjustAvailable_StaysInRange(t *testing.T) {
	s := NewStore()
	c, _ := seedCategory(t, s, 1)
	ctx := context.Background()

	require.ErrorIs(t, s.Categories().AdjustAvailable(ctx, c.ID, 1), repository.ErrConflict)
	require.NoError(t, s.Categories().AdjustAvailable(ctx, c.ID, -1))
	require.ErrorIs(t, s.Categories().AdjustAvailable(ctx, c.ID, -1), repository.ErrConflict)
	require.ErrorIs(t, s.Categories().AdjustAvailable(ctx, uuid.New(), -1), repository.ErrNotFound)
}

func TestReservationCreate_RejectsOverlappingActiveStay(t *testing.T) {
	s := NewStore()
	c, rooms := seedCategory(t, s, 1)
	ctx := context.Background()

	mk := func(in, out string, st domain.ReservationStatus) *domain.Reservation {
		return &domain.Reservation{
			ID: uuid.New(), RoomID: rooms[0].ID, CategoryID: c.ID,
			GuestName: "A", GuestEmail: "a@example.com", Guests: 1,
			CheckIn: day(in), CheckOut: day(out), Status: st,
		}
	}

	require.NoError(t, s.Reservations().Create(ctx, mk("2024-06-01", "2024-06-03", domain.StatusConfirmed)))
	require.ErrorIs(t,
		s.Reservations().Create(ctx, mk("2024-06-02", "2024-06-04", domain.StatusConfirmed)),
		repository.ErrConflict)

	// touching stays and pending holds never clash
	require.NoError(t, s.Reservations().Create(ctx, mk("2024-06-03", "2024-06-05", domain.StatusConfirmed)))
	require.NoError(t, s.Reservations().Create(ctx, mk("2024-06-02", "2024-06-04", domain.StatusPending)))

	found, err := s.Reservations().FindOverlapping(ctx, domain.OverlapQuery{
		CategoryID: c.ID, CheckIn: day("2024-06-02"), CheckOut: day("2024-06-04"),
	})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestSeatPoolBook(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.SeatPools().Upsert(ctx, &domain.SeatPool{
		Category: "student", TotalSeats: 2, Price: 50, Currency: domain.CurrencyINR,
	}))

	p, err := s.SeatPools().Book(ctx, "student", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.BookedSeats)

	_, err = s.SeatPools().Book(ctx, "student", 1)
	require.ErrorIs(t, err, repository.ErrConflict)

	p, err = s.SeatPools().Release(ctx, "student", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, p.BookedSeats)

	_, err = s.SeatPools().Book(ctx, "nobody", 1)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReservationList_SearchAndPage(t *testing.T) {
	now := day("2024-01-01")
	s := NewStore(WithClock(func() time.Time { now = now.Add(time.Minute); return now }))
	c, rooms := seedCategory(t, s, 1)
	ctx := context.Background()

	for i, name := range []string{"Alice", "Bob", "Alicia"} {
		in := day("2024-07-01").AddDate(0, 0, i*3)
		require.NoError(t, s.Reservations().Create(ctx, &domain.Reservation{
			ID: uuid.New(), RoomID: rooms[0].ID, CategoryID: c.ID,
			GuestName: name, GuestEmail: name + "@example.com", Guests: 1,
			CheckIn: in, CheckOut: in.AddDate(0, 0, 2), Status: domain.StatusConfirmed,
		}))
	}

	page, total, err := s.Reservations().List(ctx, domain.ReservationFilter{Search: "ali", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Alicia", page[0].GuestName)

	page, _, err = s.Reservations().List(ctx, domain.ReservationFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}
