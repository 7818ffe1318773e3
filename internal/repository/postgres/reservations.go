package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type ReservationRepo struct {
	db DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

const reservationColumns = `id, room_id, category_id, guest_name, guest_email, guest_phone, guests,
	check_in, check_out, notes, total_price, status, payment_status, created_by, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var rv domain.Reservation
	if err := row.Scan(
		&rv.ID, &rv.RoomID, &rv.CategoryID, &rv.GuestName, &rv.GuestEmail, &rv.GuestPhone, &rv.Guests,
		&rv.CheckIn, &rv.CheckOut, &rv.Notes, &rv.TotalPrice, &rv.Status, &rv.PaymentStatus,
		&rv.CreatedBy, &rv.CreatedAt, &rv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rv, nil
}

func statusStrings(ss []domain.ReservationStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

// Create inserts a reservation.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - rv: the reservation to insert; CreatedAt and UpdatedAt are filled in.
//
// Returns:
//   - error: repository.ErrConflict if an active reservation already holds
//     the room for an overlapping stay.
func (r *ReservationRepo) Create(ctx context.Context, rv *domain.Reservation) error {
	const op = "postgresrepo.ReservationRepo.Create"

	err := r.db.QueryRow(ctx,
		`INSERT INTO reservations(id, room_id, category_id, guest_name, guest_email, guest_phone,
		   guests, check_in, check_out, notes, total_price, status, payment_status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created_at, updated_at`,
		rv.ID, rv.RoomID, rv.CategoryID, rv.GuestName, rv.GuestEmail, rv.GuestPhone,
		rv.Guests, rv.CheckIn, rv.CheckOut, rv.Notes, rv.TotalPrice, string(rv.Status),
		string(rv.PaymentStatus), rv.CreatedBy,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Get"

	rv, err := scanReservation(r.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rv, nil
}

func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.GetForUpdate"

	rv, err := scanReservation(r.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rv, nil
}

// FindOverlapping returns reservations of q.CategoryID (or of q.RoomID alone
// when set) in one of q.Statuses whose stay intersects [CheckIn, CheckOut).
// Stays touching at the boundary do not overlap.
func (r *ReservationRepo) FindOverlapping(ctx context.Context, q domain.OverlapQuery) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.FindOverlapping"

	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = domain.ActiveStatuses
	}

	args := []any{q.CheckIn, q.CheckOut, statusStrings(statuses)}
	where := `check_in < $2 AND check_out > $1 AND status = ANY($3)`

	if q.RoomID != uuid.Nil {
		args = append(args, q.RoomID)
		where += ` AND room_id = $4`
	} else {
		args = append(args, q.CategoryID)
		where += ` AND category_id = $4`
	}

	out, err := r.list(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE `+where+` ORDER BY check_in`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ReservationRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.ReservationStatus,
	roomID uuid.UUID,
) error {
	const op = "postgresrepo.ReservationRepo.UpdateStatus"

	tag, err := r.db.Exec(ctx,
		`UPDATE reservations
		 SET status = $2, room_id = $3, updated_at = now()
		 WHERE id = $1`,
		id, string(status), roomID,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReservationRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	const op = "postgresrepo.ReservationRepo.UpdatePaymentStatus"

	tag, err := r.db.Exec(ctx,
		`UPDATE reservations SET payment_status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReservationRepo) AppendHistory(ctx context.Context, c domain.StatusChange) error {
	const op = "postgresrepo.ReservationRepo.AppendHistory"

	if _, err := r.db.Exec(ctx,
		`INSERT INTO reservation_history(reservation_id, from_status, to_status, changed_at)
		 VALUES ($1, $2, $3, $4)`,
		c.ReservationID, string(c.From), string(c.To), c.At,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ReservationRepo) History(ctx context.Context, id uuid.UUID) ([]domain.StatusChange, error) {
	const op = "postgresrepo.ReservationRepo.History"

	rows, err := r.db.Query(ctx,
		`SELECT reservation_id, from_status, to_status, changed_at
		 FROM reservation_history
		 WHERE reservation_id = $1
		 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.StatusChange
	for rows.Next() {
		var c domain.StatusChange
		if err := rows.Scan(&c.ReservationID, &c.From, &c.To, &c.At); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// List returns one page of reservations, newest first, plus the total number
// of rows matching the filter.
func (r *ReservationRepo) List(ctx context.Context, f domain.ReservationFilter) ([]domain.Reservation, int, error) {
	const op = "postgresrepo.ReservationRepo.List"

	var (
		conds []string
		args  []any
	)

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(guest_name ILIKE $%d OR guest_email ILIKE $%d OR guest_phone ILIKE $%d)`, n, n, n,
		))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf(`status = $%d`, len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM reservations`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)

	out, err := r.list(ctx,
		fmt.Sprintf(`SELECT `+reservationColumns+` FROM reservations%s
		 ORDER BY created_at DESC, id
		 LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, wrapDBErr(op, err)
	}

	return out, total, nil
}

func (r *ReservationRepo) CountActiveByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	const op = "postgresrepo.ReservationRepo.CountActiveByCategory"

	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM reservations WHERE category_id = $1 AND status = ANY($2)`,
		categoryID, statusStrings(domain.ActiveStatuses),
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *ReservationRepo) CountActiveByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	const op = "postgresrepo.ReservationRepo.CountActiveByRoom"

	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM reservations WHERE room_id = $1 AND status = ANY($2)`,
		roomID, statusStrings(domain.ActiveStatuses),
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *ReservationRepo) OccupiedRooms(ctx context.Context, categoryID uuid.UUID) (int, error) {
	const op = "postgresrepo.ReservationRepo.OccupiedRooms"

	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT count(DISTINCT res.room_id)
		 FROM reservations res
		 JOIN rooms rm ON rm.id = res.room_id
		 WHERE res.category_id = $1 AND res.status = ANY($2)`,
		categoryID, statusStrings(domain.ActiveStatuses),
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *ReservationRepo) StatusTotals(ctx context.Context) ([]domain.StatusTotal, error) {
	const op = "postgresrepo.ReservationRepo.StatusTotals"

	rows, err := r.db.Query(ctx,
		`SELECT status, count(*), COALESCE(sum(total_price), 0)::float8
		 FROM reservations
		 GROUP BY status
		 ORDER BY status`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.StatusTotal
	for rows.Next() {
		var t domain.StatusTotal
		if err := rows.Scan(&t.Status, &t.Count, &t.Sum); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ReservationRepo) list(ctx context.Context, sql string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		rv, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}

	return out, rows.Err()
}
