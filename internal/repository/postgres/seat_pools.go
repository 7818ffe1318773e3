package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type SeatPoolRepo struct {
	db DB
}

func (r *SeatPoolRepo) With(db DB) *SeatPoolRepo {
	cp := *r
	cp.db = db
	return &cp
}

const seatPoolColumns = `category, total_seats, booked_seats, price::float8, currency, updated_at`

func scanSeatPool(row pgx.Row) (*domain.SeatPool, error) {
	var p domain.SeatPool
	if err := row.Scan(&p.Category, &p.TotalSeats, &p.BookedSeats, &p.Price, &p.Currency, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates the pool or replaces its capacity and price. Booked seats are
// kept; a capacity below them violates the range check and yields ErrConflict.
func (r *SeatPoolRepo) Upsert(ctx context.Context, p *domain.SeatPool) error {
	const op = "postgresrepo.SeatPoolRepo.Upsert"

	err := r.db.QueryRow(ctx,
		`INSERT INTO seat_pools(category, total_seats, booked_seats, price, currency)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (category) DO UPDATE
		 SET total_seats = EXCLUDED.total_seats,
		     price = EXCLUDED.price,
		     currency = EXCLUDED.currency,
		     updated_at = now()
		 RETURNING booked_seats, updated_at`,
		p.Category, p.TotalSeats, p.BookedSeats, p.Price, string(p.Currency),
	).Scan(&p.BookedSeats, &p.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *SeatPoolRepo) Get(ctx context.Context, category string) (*domain.SeatPool, error) {
	const op = "postgresrepo.SeatPoolRepo.Get"

	p, err := scanSeatPool(r.db.QueryRow(ctx,
		`SELECT `+seatPoolColumns+` FROM seat_pools WHERE category = $1`, category,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

func (r *SeatPoolRepo) List(ctx context.Context) ([]domain.SeatPool, error) {
	const op = "postgresrepo.SeatPoolRepo.List"

	rows, err := r.db.Query(ctx, `SELECT `+seatPoolColumns+` FROM seat_pools ORDER BY category`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.SeatPool
	for rows.Next() {
		p, err := scanSeatPool(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Book is a single conditional increment: of any number of concurrent callers
// competing for the last seats, only those that still fit see a row back.
func (r *SeatPoolRepo) Book(ctx context.Context, category string, qty int) (*domain.SeatPool, error) {
	const op = "postgresrepo.SeatPoolRepo.Book"

	p, err := scanSeatPool(r.db.QueryRow(ctx,
		`UPDATE seat_pools
		 SET booked_seats = booked_seats + $2, updated_at = now()
		 WHERE category = $1 AND booked_seats + $2 <= total_seats
		 RETURNING `+seatPoolColumns,
		category, qty,
	))
	if err == nil {
		return p, nil
	}

	if translateDBErr(err) != repository.ErrNotFound {
		return nil, wrapDBErr(op, err)
	}

	if _, err := r.Get(ctx, category); err != nil {
		return nil, err
	}

	return nil, wrapDBErr(op, repository.ErrConflict)
}

func (r *SeatPoolRepo) Release(ctx context.Context, category string, qty int) (*domain.SeatPool, error) {
	const op = "postgresrepo.SeatPoolRepo.Release"

	p, err := scanSeatPool(r.db.QueryRow(ctx,
		`UPDATE seat_pools
		 SET booked_seats = GREATEST(booked_seats - $2, 0), updated_at = now()
		 WHERE category = $1
		 RETURNING `+seatPoolColumns,
		category, qty,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}
