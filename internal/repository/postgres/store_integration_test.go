package postgresrepo_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/postgres"
	"github.com/kirinyoku/inn-go/internal/repository"
	postgresrepo "github.com/kirinyoku/inn-go/internal/repository/postgres"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/kirinyoku/inn-go/internal/service/seating"
	"github.com/kirinyoku/inn-go/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStore gives each test its own schema with the embedded migrations
// applied. It needs INNGO_TEST_DSN pointing at a database the user may
// create schemas in.
func newStore(t *testing.T) *postgresrepo.Store {
	t.Helper()

	dsn := os.Getenv("INNGO_TEST_DSN")
	if dsn == "" {
		t.Skip("INNGO_TEST_DSN not set")
	}

	ctx := context.Background()

	admin, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	// the extension lives in public so dropping a test schema keeps it
	_, err = admin.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS btree_gist SCHEMA public`)
	require.NoError(t, err)

	schema := "inngo_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), `DROP SCHEMA `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
	})

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:        dsn,
		MaxConns:   8,
		SearchPath: schema + ", public",
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool, migrations.FS))
	// re-runnable
	require.NoError(t, postgres.Migrate(ctx, pool, migrations.FS))

	return postgresrepo.NewStore(pool)
}

var clock = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedCategory(t *testing.T, store *postgresrepo.Store, rooms int) (domain.Category, []domain.Room) {
	t.Helper()
	ctx := context.Background()

	cat := domain.Category{
		ID:             uuid.New(),
		Name:           "Deluxe " + uuid.NewString()[:8],
		BasePrice:      200,
		Discount:       10,
		Beds:           1,
		MaxGuests:      2,
		Type:           domain.TypeDouble,
		TotalRooms:     rooms,
		AvailableRooms: rooms,
		Status:         domain.CategoryAvailable,
	}
	require.NoError(t, store.Categories().Create(ctx, &cat))

	batch := make([]domain.Room, rooms)
	for i := range batch {
		batch[i] = domain.Room{
			ID:         uuid.New(),
			CategoryID: cat.ID,
			Number:     fmt.Sprintf("D%d", 101+i),
			Floor:      1,
			Status:     domain.RoomAvailable,
		}
	}
	n, err := store.Rooms().CreateMany(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, rooms, n)

	batch, err = store.Rooms().ListByCategory(ctx, cat.ID)
	require.NoError(t, err)

	return cat, batch
}

func stay(cat domain.Category, in, out string) reservation.CreateRequest {
	return reservation.CreateRequest{
		CategoryID: cat.ID,
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
		GuestPhone: "+44 20 7946 0000",
		Guests:     2,
		CheckIn:    day(in),
		CheckOut:   day(out),
	}
}

func TestStore_LastRoomRace(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cat, rooms := seedCategory(t, store, 1)
	svc := reservation.New(store, nil, nil, nil, nil, nil, reservation.Config{Now: func() time.Time { return clock }})

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []domain.Reservation
		conflicts int
	)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rv, err := svc.Create(ctx, stay(cat, "2024-06-01", "2024-06-03"), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, *rv)
			case assert.ErrorIs(t, err, reservation.ErrRoomUnavailable):
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, rooms[0].ID, winners[0].RoomID)
	assert.InDelta(t, 360.0, winners[0].TotalPrice, 0.001)

	got, err := store.Categories().Get(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableRooms)

	room, err := store.Rooms().Get(ctx, rooms[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomOccupied, room.Status)

	_, total, err := store.Reservations().List(ctx, domain.ReservationFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// a touching stay shares the room
	next, err := svc.Create(ctx, stay(cat, "2024-06-03", "2024-06-05"), "")
	require.NoError(t, err)
	assert.Equal(t, rooms[0].ID, next.RoomID)

}

func TestStore_ExclusionConstraintRefusesOverlap(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cat, rooms := seedCategory(t, store, 1)

	insert := func(in, out string, status domain.ReservationStatus) error {
		return store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.Reservations().Create(ctx, &domain.Reservation{
				ID:            uuid.New(),
				RoomID:        rooms[0].ID,
				CategoryID:    cat.ID,
				GuestName:     "Grace Hopper",
				GuestEmail:    "grace@example.com",
				Guests:        1,
				CheckIn:       day(in),
				CheckOut:      day(out),
				TotalPrice:    180,
				Status:        status,
				PaymentStatus: domain.PaymentPending,
			})
		})
	}

	require.NoError(t, insert("2024-06-01", "2024-06-03", domain.StatusConfirmed))

	err := insert("2024-06-02", "2024-06-04", domain.StatusCheckedIn)
	assert.ErrorIs(t, err, repository.ErrConflict)

	// half-open stays touch without overlapping
	assert.NoError(t, insert("2024-06-03", "2024-06-04", domain.StatusConfirmed))

	// inactive stays are outside the constraint
	assert.NoError(t, insert("2024-06-01", "2024-06-03", domain.StatusCancelled))
	assert.NoError(t, insert("2024-06-01", "2024-06-03", domain.StatusPending))
}

func TestStore_LastSeatRace(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	svc := seating.New(store, nil, nil, nil, nil, nil, seating.Config{})
	require.NoError(t, svc.Seed(ctx))

	_, err := svc.BookSeats(ctx, "foreigner", 59)
	require.NoError(t, err)

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		soldOut int
	)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.BookSeats(ctx, "foreigner", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, seating.ErrSoldOut):
				soldOut++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, soldOut)

	pool, err := store.SeatPools().Get(ctx, "foreigner")
	require.NoError(t, err)
	assert.Equal(t, 60, pool.BookedSeats)
	assert.Equal(t, 0, pool.AvailableSeats())

	pool, err = svc.ReleaseSeats(ctx, "foreigner", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, pool.BookedSeats)
}

func TestStore_RegistrationReview(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	svc := seating.New(store, nil, nil, nil, nil, nil, seating.Config{})
	require.NoError(t, svc.Seed(ctx))

	g, err := svc.Register(ctx, seating.RegisterRequest{
		FullName: "Mei Chen", Email: "mei@example.com", Country: "SG", Phone: "+65 6123 4567", Category: "indian",
	})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, g.ID, "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, seating.RegisterRequest{
		FullName: "Mei Chen", Email: "MEI@example.com", Country: "SG", Phone: "+65 6123 4567", Category: "indian",
	})
	require.NoError(t, err)

	// the open-email unique index refuses reopening the first one
	_, err = svc.Approve(ctx, g.ID, "")
	require.ErrorIs(t, err, seating.ErrDuplicateEmail)

	pool, err := store.SeatPools().Get(ctx, "indian")
	require.NoError(t, err)
	assert.Equal(t, 0, pool.BookedSeats)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalRegistrations)
	assert.EqualValues(t, 1, stats.Rejected)

	page, err := svc.List(ctx, domain.RegistrationPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
