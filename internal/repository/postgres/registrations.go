package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type RegistrationRepo struct {
	db DB
}

func (r *RegistrationRepo) With(db DB) *RegistrationRepo {
	cp := *r
	cp.db = db
	return &cp
}

const registrationColumns = `id, full_name, email, country, phone, category, quantity, amount::float8,
	currency, order_ref, payment_ref, status, transaction_id, failure_reason, admin_notes, created_at, updated_at`

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var g domain.Registration
	if err := row.Scan(
		&g.ID, &g.FullName, &g.Email, &g.Country, &g.Phone, &g.Category, &g.Quantity, &g.Amount,
		&g.Currency, &g.OrderRef, &g.PaymentRef, &g.Status, &g.TransactionID, &g.FailureReason,
		&g.AdminNotes, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *RegistrationRepo) Create(ctx context.Context, g *domain.Registration) error {
	const op = "postgresrepo.RegistrationRepo.Create"

	err := r.db.QueryRow(ctx,
		`INSERT INTO registrations(id, full_name, email, country, phone, category, quantity,
		   amount, currency, order_ref, payment_ref, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		g.ID, g.FullName, g.Email, g.Country, g.Phone, g.Category, g.Quantity,
		g.Amount, string(g.Currency), g.OrderRef, g.PaymentRef, string(g.Status),
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *RegistrationRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	const op = "postgresrepo.RegistrationRepo.Get"

	g, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return g, nil
}

func (r *RegistrationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	const op = "postgresrepo.RegistrationRepo.GetForUpdate"

	g, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return g, nil
}

func (r *RegistrationRepo) GetByOrderRef(ctx context.Context, orderRef string) (*domain.Registration, error) {
	const op = "postgresrepo.RegistrationRepo.GetByOrderRef"

	g, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE order_ref = $1`, orderRef,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return g, nil
}

func (r *RegistrationRepo) GetByOrderRefForUpdate(ctx context.Context, orderRef string) (*domain.Registration, error) {
	const op = "postgresrepo.RegistrationRepo.GetByOrderRefForUpdate"

	g, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE order_ref = $1 FOR UPDATE`, orderRef,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return g, nil
}

// FindOpenByEmail returns the pending or completed registration for email.
func (r *RegistrationRepo) FindOpenByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	const op = "postgresrepo.RegistrationRepo.FindOpenByEmail"

	g, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE lower(email) = lower($1) AND status IN ('pending', 'completed')
		 LIMIT 1`,
		email,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return g, nil
}

func (r *RegistrationRepo) Update(ctx context.Context, g *domain.Registration) error {
	const op = "postgresrepo.RegistrationRepo.Update"

	err := r.db.QueryRow(ctx,
		`UPDATE registrations
		 SET payment_ref = $2, status = $3, transaction_id = $4, failure_reason = $5,
		     admin_notes = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		g.ID, g.PaymentRef, string(g.Status), g.TransactionID, g.FailureReason, g.AdminNotes,
	).Scan(&g.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ExpirePending marks every pending registration created before the cutoff
// as cancelled and returns the rows it changed.
func (r *RegistrationRepo) ExpirePending(ctx context.Context, createdBefore time.Time) ([]domain.Registration, error) {
	const op = "postgresrepo.RegistrationRepo.ExpirePending"

	rows, err := r.db.Query(ctx,
		`UPDATE registrations
		 SET status = 'cancelled', failure_reason = 'payment window expired', updated_at = now()
		 WHERE status = 'pending' AND created_at < $1
		 RETURNING `+registrationColumns,
		createdBefore,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Registration
	for rows.Next() {
		g, err := scanRegistration(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *RegistrationRepo) List(ctx context.Context, f domain.RegistrationFilter) ([]domain.Registration, int, error) {
	const op = "postgresrepo.RegistrationRepo.List"

	var (
		where string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = ` WHERE status = $1`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM registrations`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)

	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT `+registrationColumns+` FROM registrations%s
		 ORDER BY created_at DESC, id
		 LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := []domain.Registration{}
	for rows.Next() {
		g, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, wrapDBErr(op, err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	return out, total, nil
}

func (r *RegistrationRepo) StatusTotals(ctx context.Context) ([]domain.RegistrationTotal, error) {
	const op = "postgresrepo.RegistrationRepo.StatusTotals"

	rows, err := r.db.Query(ctx,
		`SELECT status, currency, count(*), COALESCE(sum(amount), 0)::float8
		 FROM registrations
		 GROUP BY status, currency
		 ORDER BY status, currency`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.RegistrationTotal
	for rows.Next() {
		var t domain.RegistrationTotal
		if err := rows.Scan(&t.Status, &t.Currency, &t.Count, &t.Amount); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

var _ repository.RegistrationRepo = (*RegistrationRepo)(nil)
