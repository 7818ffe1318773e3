package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RunsHooksAfterCommit(t *testing.T) {
	u := NewUoW(memory.NewStore())

	var order []string
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { order = append(order, "first") })
		after(func(context.Context) { order = append(order, "second") })
		order = append(order, "tx")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"tx", "first", "second"}, order)
}

func TestDo_SkipsHooksOnError(t *testing.T) {
	u := NewUoW(memory.NewStore())
	boom := errors.New("boom")

	ran := false
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { ran = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestDo_HooksSurviveCancel(t *testing.T) {
	u := NewUoW(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())

	var hookErr error
	err := u.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hookErr = ctx.Err() })
		cancel()
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, hookErr)
}
