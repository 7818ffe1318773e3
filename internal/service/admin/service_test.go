package admin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository/memory"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) InvalidateCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func setup(t *testing.T) (*Service, *reservation.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(memory.WithClock(func() time.Time { return clock }))
	rsv := reservation.New(store, nil, nil, nil, nil, nil, reservation.Config{Now: func() time.Time { return clock }})
	return New(store, nil, nil, nil), rsv, store
}

func suite(rooms int) CategoryInput {
	return CategoryInput{
		Name:       "Royal Suite",
		BasePrice:  500,
		Discount:   20,
		Beds:       2,
		MaxGuests:  4,
		Type:       domain.TypeSuite,
		Amenities:  []string{"wifi", "bathtub"},
		TotalRooms: rooms,
	}
}

func book(t *testing.T, rsv *reservation.Service, categoryID uuid.UUID) *domain.Reservation {
	t.Helper()
	rv, err := rsv.Create(context.Background(), reservation.CreateRequest{
		CategoryID: categoryID,
		GuestName:  "Alan Turing",
		GuestEmail: "alan@example.com",
		GuestPhone: "+44 1234",
		Guests:     1,
		CheckIn:    time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
	}, "")
	require.NoError(t, err)
	return rv
}

func TestCreateCategory_NumbersRoomsByFloor(t *testing.T) {
	svc, _, store := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, suite(12))
	require.NoError(t, err)
	assert.Equal(t, 12, c.TotalRooms)
	assert.Equal(t, 12, c.AvailableRooms)
	assert.Equal(t, domain.CategoryAvailable, c.Status)

	rooms, err := store.Rooms().ListByCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 12)
	assert.Equal(t, "S1", rooms[0].Number)
	assert.Equal(t, 1, rooms[0].Floor)
	assert.Equal(t, "S10", rooms[9].Number)
	assert.Equal(t, 1, rooms[9].Floor)
	assert.Equal(t, "S11", rooms[10].Number)
	assert.Equal(t, 2, rooms[10].Floor)

	_, err = svc.CreateCategory(ctx, suite(1))
	assert.ErrorIs(t, err, ErrCategoryConflict)
}

func TestCreateCategory_Validation(t *testing.T) {
	svc, _, _ := setup(t)

	in := suite(1)
	in.Discount = 120
	_, err := svc.CreateCategory(context.Background(), in)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "discount", ve.Field)

	in = suite(1)
	in.Type = "penthouse"
	_, err = svc.CreateCategory(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCreateCategory_InvalidatesCache(t *testing.T) {
	cache := &mockCache{}
	cache.On("InvalidateCategory", mock.Anything, mock.Anything).Return(nil).Once()

	store := memory.NewStore()
	svc := New(store, cache, nil, nil)

	_, err := svc.CreateCategory(context.Background(), suite(1))
	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestSetTotalRooms(t *testing.T) {
	svc, rsv, store := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, suite(3))
	require.NoError(t, err)

	rv := book(t, rsv, c.ID)

	grown, err := svc.SetTotalRooms(ctx, c.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, grown.TotalRooms)
	assert.Equal(t, 4, grown.AvailableRooms)

	rooms, err := store.Rooms().ListByCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 5)
	assert.Equal(t, "S5", rooms[4].Number)

	shrunk, err := svc.SetTotalRooms(ctx, c.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, shrunk.TotalRooms)
	assert.Equal(t, 0, shrunk.AvailableRooms)

	rooms, err = store.Rooms().ListByCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, rv.RoomID, rooms[0].ID)

	_, err = svc.SetTotalRooms(ctx, c.ID, 0)
	assert.ErrorIs(t, err, ErrCannotShrink)

	got, err := store.Categories().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRooms)
}

func TestDeleteCategory_RefusedWhileActive(t *testing.T) {
	svc, rsv, store := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, suite(2))
	require.NoError(t, err)
	rv := book(t, rsv, c.ID)

	err = svc.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrCategoryInUse)

	_, err = rsv.Transition(ctx, rv.ID, domain.StatusCancelled)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))

	_, err = store.Categories().Get(ctx, c.ID)
	assert.Error(t, err)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), ErrCategoryNotFound)
}

func TestRooms_CreateSetStatusDelete(t *testing.T) {
	svc, rsv, store := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, suite(1))
	require.NoError(t, err)

	r, err := svc.CreateRoom(ctx, c.ID, "PH1", 9)
	require.NoError(t, err)

	_, err = svc.CreateRoom(ctx, c.ID, "PH1", 9)
	assert.ErrorIs(t, err, ErrRoomConflict)

	got, err := store.Categories().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRooms)
	assert.Equal(t, 2, got.AvailableRooms)

	rv := book(t, rsv, c.ID)

	out, err := svc.SetRoomStatus(ctx, rv.RoomID, domain.RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomMaintenance, out.Status)

	out, err = svc.SetRoomStatus(ctx, rv.RoomID, domain.RoomAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomOccupied, out.Status, "the ledger still holds it")

	assert.ErrorIs(t, svc.DeleteRoom(ctx, rv.RoomID), ErrRoomInUse)

	require.NoError(t, svc.DeleteRoom(ctx, r.ID))
	got, err = store.Categories().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRooms)
	assert.Equal(t, 0, got.AvailableRooms)

	rooms, err := svc.ListRooms(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	_, err = svc.ListRooms(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestSetCategoryStatus_ClosesBooking(t *testing.T) {
	svc, rsv, _ := setup(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, suite(1))
	require.NoError(t, err)

	require.NoError(t, svc.SetCategoryStatus(ctx, c.ID, domain.CategoryMaintenance))

	_, err = rsv.Create(ctx, reservation.CreateRequest{
		CategoryID: c.ID,
		GuestName:  "Alan Turing",
		GuestEmail: "alan@example.com",
		GuestPhone: "+44 1234",
		Guests:     1,
		CheckIn:    time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC),
	}, "")
	assert.ErrorIs(t, err, reservation.ErrCategoryClosed)

	assert.ErrorIs(t, svc.SetCategoryStatus(ctx, c.ID, "closed"), domain.ErrInvalidRequest)
	assert.ErrorIs(t, svc.SetCategoryStatus(ctx, uuid.New(), domain.CategoryAvailable), ErrCategoryNotFound)
}
