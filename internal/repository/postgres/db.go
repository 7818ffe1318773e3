package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const maxTxAttempts = 3

type Store struct {
	pool     *pgxpool.Pool
	attempts int
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		attempts: maxTxAttempts,
	}
}

// RunTx runs fn in a read-committed transaction. Allocation code takes row
// locks (GetForUpdate) for isolation; serialization and deadlock failures
// are retried with a short backoff.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	return s.RunTxWithOpts(ctx, nil, fn)
}

func (s *Store) RunTxWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.runOnce(ctx, txOpts, fn)
		if err == nil || !IsRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s:%w", op, ctx.Err())
		case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
		}
	}

	return err
}

func (s *Store) runOnce(
	ctx context.Context,
	txOpts pgx.TxOptions,
	fn func(ctx context.Context, tx repository.Tx) error,
) error {
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, bind(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if errors.Is(translateDBErr(err), repository.ErrConflict) {
			return repository.ErrConflict
		}
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Categories() repository.CategoryRepo        { return &CategoryRepo{db: s.pool} }
func (s *Store) Rooms() repository.RoomRepo                 { return &RoomRepo{db: s.pool} }
func (s *Store) Reservations() repository.ReservationRepo   { return &ReservationRepo{db: s.pool} }
func (s *Store) SeatPools() repository.SeatPoolRepo         { return &SeatPoolRepo{db: s.pool} }
func (s *Store) Registrations() repository.RegistrationRepo { return &RegistrationRepo{db: s.pool} }

// txRepos binds every repository to one transaction handle.
type txRepos struct {
	db DB
}

func bind(db DB) *txRepos { return &txRepos{db: db} }

func (t *txRepos) Categories() repository.CategoryRepo        { return &CategoryRepo{db: t.db} }
func (t *txRepos) Rooms() repository.RoomRepo                 { return &RoomRepo{db: t.db} }
func (t *txRepos) Reservations() repository.ReservationRepo   { return &ReservationRepo{db: t.db} }
func (t *txRepos) SeatPools() repository.SeatPoolRepo         { return &SeatPoolRepo{db: t.db} }
func (t *txRepos) Registrations() repository.RegistrationRepo { return &RegistrationRepo{db: t.db} }

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*txRepos)(nil)
)
