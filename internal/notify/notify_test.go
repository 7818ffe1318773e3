package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, ev Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMulti_JoinsErrorsAndCallsEverySink(t *testing.T) {
	a, b := &mockNotifier{}, &mockNotifier{}
	boom := errors.New("broker down")

	a.On("Notify", mock.Anything, mock.Anything).Return(boom).Once()
	b.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	err := Multi{a, nil, b}.Notify(context.Background(), Event{Type: EventReservationCreated})

	assert.ErrorIs(t, err, boom)
	a.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestSend_StampsTimeAndSwallowsErrors(t *testing.T) {
	done := make(chan struct{})
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Type == EventReservationReleased && !ev.At.IsZero()
	})).Return(errors.New("nope")).Once().Run(func(args mock.Arguments) {
		assert.NoError(t, args.Get(0).(context.Context).Err())
		close(done)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		Send(ctx, n, discard(), Event{Type: EventReservationReleased})
	})
	waitFor(t, done)
	n.AssertExpectations(t)

	Send(ctx, nil, discard(), Event{})
}

// blocking holds every delivery until its context ends.
type blocking struct {
	calls chan Event
}

func (b *blocking) Notify(ctx context.Context, ev Event) error {
	b.calls <- ev
	<-ctx.Done()
	return ctx.Err()
}

func TestSend_DoesNotWaitForSlowSink(t *testing.T) {
	b := &blocking{calls: make(chan Event, 1)}

	start := time.Now()
	Send(context.Background(), b, discard(), Event{Type: EventReservationCreated})
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	select {
	case ev := <-b.calls:
		assert.Equal(t, EventReservationCreated, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(&mockNotifier{}, discard(), 1)

	assert.NoError(t, d.Notify(context.Background(), Event{Type: EventReservationCreated}))
	assert.ErrorIs(t, d.Notify(context.Background(), Event{Type: EventReservationConfirmed}), ErrQueueFull)
}

func TestDispatcher_DeliversAndFlushesOnStop(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, args.Get(1).(Event).Type)
	})

	d := NewDispatcher(n, discard(), 8)
	require.NoError(t, d.Notify(context.Background(), Event{Type: EventReservationCreated}))
	require.NoError(t, d.Notify(context.Background(), Event{Type: EventReservationConfirmed}))

	// queued before Run starts and after the context is already done
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{EventReservationCreated, EventReservationConfirmed}, got)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestLog_NeverFails(t *testing.T) {
	assert.NoError(t, NewLog(discard()).Notify(context.Background(), Event{Type: EventRegistrationComplete}))
}
