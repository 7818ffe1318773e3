package seating

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/payment"
	"github.com/kirinyoku/inn-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "gateway-secret"

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, ev notify.Event) error {
	return m.Called(ctx, ev).Error(0)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newService(t *testing.T, n notify.Notifier) (*Service, *memory.Store, *testClock) {
	t.Helper()

	clk := &testClock{t: time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clk.Now))

	svc := New(store, payment.NewHMACVerifier(secret), nil, nil, n, nil, Config{
		Now:             clk.Now,
		RegistrationTTL: 30 * time.Minute,
	})
	require.NoError(t, svc.Seed(context.Background()))

	return svc, store, clk
}

func register(t *testing.T, svc *Service, email, category string) *domain.Registration {
	t.Helper()
	g, err := svc.Register(context.Background(), RegisterRequest{
		FullName: "Grace Hopper",
		Email:    email,
		Country:  "US",
		Phone:    "+1 555 0100",
		Category: category,
	})
	require.NoError(t, err)
	return g
}

func pay(svc *Service, g *domain.Registration) (*domain.Registration, error) {
	ref := "pay_" + g.ID.String()[:8]
	return svc.VerifyPayment(context.Background(), VerifyRequest{
		OrderRef:   g.OrderRef,
		PaymentRef: ref,
		Signature:  payment.NewHMACVerifier(secret).Sign(g.OrderRef, ref),
	})
}

func seats(t *testing.T, store *memory.Store, category string) domain.SeatPool {
	t.Helper()
	p, err := store.SeatPools().Get(context.Background(), category)
	require.NoError(t, err)
	return *p
}

func TestSeed_IsIdempotent(t *testing.T) {
	svc, store, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.BookSeats(ctx, "student", 3)
	require.NoError(t, err)
	require.NoError(t, svc.Seed(ctx))

	p := seats(t, store, "student")
	assert.Equal(t, 50, p.TotalSeats)
	assert.Equal(t, 3, p.BookedSeats)

	stats, err := svc.Availability(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "foreigner", stats[0].Category)
	assert.Equal(t, domain.CurrencyUSD, stats[0].Currency)
	assert.Equal(t, 47, stats[2].Available)
	assert.Equal(t, 94, stats[2].Percentage)
}

func TestBookSeats_ConcurrentNeverOverbooks(t *testing.T) {
	svc, store, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.BookSeats(ctx, "indian", 59)
	require.NoError(t, err)

	const n = 10
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
			_, err := svc.BookSeats(ctx, "indian", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrSoldOut):
				soldOut++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, soldOut)
	assert.Equal(t, 60, seats(t, store, "indian").BookedSeats)
}

func TestBookSeats_Errors(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.BookSeats(ctx, "vip", 1)
	assert.ErrorIs(t, err, ErrPoolNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.BookSeats(ctx, "student", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.BookSeats(ctx, "student", 51)
	assert.ErrorIs(t, err, ErrSoldOut)
}

func TestReleaseSeats_ClampsAtZero(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.BookSeats(ctx, "student", 2)
	require.NoError(t, err)

	p, err := svc.ReleaseSeats(ctx, "student", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, p.BookedSeats)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{FullName: "A", Email: "bad", Country: "IN", Phone: "1", Category: "indian"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Register(ctx, RegisterRequest{FullName: "A", Email: "Mallory <m@example.com>", Country: "IN", Phone: "1", Category: "indian"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	_, err = svc.Register(ctx, RegisterRequest{FullName: "A", Email: "a@b.co", Country: "IN", Phone: "1", Category: "vip"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category", ve.Field)
	assert.Equal(t, "invalid category", ve.Reason)
}

func TestRegister_ReservesNothingAndRejectsDuplicateEmail(t *testing.T) {
	svc, store, _ := newService(t, nil)
	ctx := context.Background()

	g := register(t, svc, "grace@example.com", "Foreigner")
	assert.Equal(t, domain.RegistrationPending, g.Status)
	assert.Equal(t, "foreigner", g.Category)
	assert.Equal(t, 500.0, g.Amount)
	assert.Equal(t, domain.CurrencyUSD, g.Currency)
	assert.NotEmpty(t, g.OrderRef)
	assert.Equal(t, 0, seats(t, store, "foreigner").BookedSeats)

	_, err := svc.Register(ctx, RegisterRequest{
		FullName: "Grace", Email: "GRACE@example.com", Country: "US", Phone: "1", Category: "student",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_SoldOut(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.BookSeats(ctx, "student", 50)
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{
		FullName: "A", Email: "a@example.com", Country: "IN", Phone: "1", Category: "student",
	})
	assert.ErrorIs(t, err, ErrSoldOut)
}

func TestVerifyPayment_CompletesAndBooks(t *testing.T) {
	sent := make(chan struct{})
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(ev notify.Event) bool {
		return ev.Type == notify.EventRegistrationComplete && ev.Email == "grace@example.com"
	})).Return(nil).Once().Run(func(mock.Arguments) { close(sent) })

	svc, store, _ := newService(t, n)

	g := register(t, svc, "grace@example.com", "indian")
	done, err := pay(svc, g)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationCompleted, done.Status)
	assert.NotEmpty(t, done.TransactionID)
	assert.Equal(t, 1, seats(t, store, "indian").BookedSeats)

	_, err = pay(svc, g)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, 1, seats(t, store, "indian").BookedSeats)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("completion event not delivered")
	}
	n.AssertExpectations(t)
}

func TestVerifyPayment_BadSignatureMarksFailed(t *testing.T) {
	svc, store, _ := newService(t, nil)
	ctx := context.Background()

	g := register(t, svc, "grace@example.com", "indian")

	got, err := svc.VerifyPayment(ctx, VerifyRequest{OrderRef: g.OrderRef, PaymentRef: "pay_x", Signature: "abcd"})
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.NotNil(t, got)
	assert.Equal(t, domain.RegistrationFailed, got.Status)
	assert.Equal(t, "invalid signature", got.FailureReason)

	stored, err := svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationFailed, stored.Status)
	assert.Equal(t, 0, seats(t, store, "indian").BookedSeats)

	// a failed registration frees the email
	register(t, svc, "grace@example.com", "indian")
}

func TestVerifyPayment_SoldOutAfterRegistration(t *testing.T) {
	svc, store, _ := newService(t, nil)
	ctx := context.Background()

	g := register(t, svc, "grace@example.com", "student")
	_, err := svc.BookSeats(ctx, "student", 50)
	require.NoError(t, err)

	got, err := pay(svc, g)
	require.ErrorIs(t, err, ErrSoldOut)
	assert.Equal(t, domain.RegistrationFailed, got.Status)
	assert.Equal(t, "no seats available", got.FailureReason)
	assert.Equal(t, 50, seats(t, store, "student").BookedSeats)
}

func TestVerifyPayment_UnknownOrder(t *testing.T) {
	svc, _, _ := newService(t, nil)
	v := payment.NewHMACVerifier(secret)

	_, err := svc.VerifyPayment(context.Background(), VerifyRequest{
		OrderRef: "order_missing", PaymentRef: "pay_1", Signature: v.Sign("order_missing", "pay_1"),
	})
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestCancel(t *testing.T) {
	svc, store, _ := newService(t, nil)
	ctx := context.Background()

	paid := register(t, svc, "a@example.com", "indian")
	_, err := pay(svc, paid)
	require.NoError(t, err)
	require.Equal(t, 1, seats(t, store, "indian").BookedSeats)

	got, err := svc.Cancel(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationCancelled, got.Status)
	assert.Equal(t, 0, seats(t, store, "indian").BookedSeats)

	_, err = svc.Cancel(ctx, paid.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	pending := register(t, svc, "b@example.com", "indian")
	_, err = svc.Cancel(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, seats(t, store, "indian").BookedSeats)

	_, err = svc.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestExpirePending(t *testing.T) {
	svc, _, clk := newService(t, nil)
	ctx := context.Background()

	old := register(t, svc, "old@example.com", "indian")
	clk.Advance(20 * time.Minute)
	fresh := register(t, svc, "fresh@example.com", "indian")
	clk.Advance(15 * time.Minute)

	n, err := svc.ExpirePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationCancelled, got.Status)

	got, err = svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationPending, got.Status)

	_, err = pay(svc, old)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestUpsertPool(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.BookSeats(ctx, "student", 10)
	require.NoError(t, err)

	p, err := svc.UpsertPool(ctx, domain.SeatPool{Category: "Student", TotalSeats: 80, Price: 12000, Currency: domain.CurrencyINR})
	require.NoError(t, err)
	assert.Equal(t, 10, p.BookedSeats)
	assert.Equal(t, 80, p.TotalSeats)

	_, err = svc.UpsertPool(ctx, domain.SeatPool{Category: "student", TotalSeats: 5, Currency: domain.CurrencyINR})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.UpsertPool(ctx, domain.SeatPool{Category: "vip", TotalSeats: 5, Currency: "EUR"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
