// Package uow runs service operations as one storage transaction and defers
// their side effects until the transaction has committed.
package uow

import (
	"context"

	"github.com/kirinyoku/inn-go/internal/repository"
)

// AfterCommit is a side effect (cache invalidation, change broadcast,
// notification) that must only happen for committed state.
type AfterCommit func(ctx context.Context)

type UoW struct {
	store repository.Store
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a transaction of the store. fn registers side effects with
// after; they run in order once the commit succeeded, on a context that
// outlives the caller's cancellation.
//
// The store may run fn more than once when it retries a serialization
// failure. Only the hooks of the attempt that committed are run.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	var committed []AfterCommit

	err := u.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var attempt []AfterCommit
		if err := fn(ctx, tx, func(h AfterCommit) {
			attempt = append(attempt, h)
		}); err != nil {
			return err
		}
		committed = attempt
		return nil
	})
	if err != nil {
		return err
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range committed {
		h(hookCtx)
	}

	return nil
}
