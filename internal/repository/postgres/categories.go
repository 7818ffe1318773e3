package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type CategoryRepo struct {
	db DB
}

func (r *CategoryRepo) With(db DB) *CategoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

const categoryColumns = `id, name, description, images, base_price, discount, beds, max_guests,
	type, amenities, total_rooms, available_rooms, status, created_by, created_at, updated_at`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Images, &c.BasePrice, &c.Discount, &c.Beds, &c.MaxGuests,
		&c.Type, &c.Amenities, &c.TotalRooms, &c.AvailableRooms, &c.Status, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	const op = "postgresrepo.CategoryRepo.Create"

	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Amenities == nil {
		c.Amenities = []string{}
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO room_categories(id, name, description, images, base_price, discount, beds,
		   max_guests, type, amenities, total_rooms, available_rooms, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description, c.Images, c.BasePrice, c.Discount, c.Beds,
		c.MaxGuests, c.Type, c.Amenities, c.TotalRooms, c.AvailableRooms, c.Status, c.CreatedBy,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CategoryRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	const op = "postgresrepo.CategoryRepo.Get"

	c, err := scanCategory(r.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM room_categories WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return c, nil
}

// GetForUpdate loads the category row with FOR UPDATE. Concurrent units of
// work allocating rooms of the same category queue on this lock.
func (r *CategoryRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	const op = "postgresrepo.CategoryRepo.GetForUpdate"

	c, err := scanCategory(r.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM room_categories WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	const op = "postgresrepo.CategoryRepo.List"

	rows, err := r.db.Query(ctx,
		`SELECT `+categoryColumns+` FROM room_categories ORDER BY created_at, name`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CategoryRepo) UpdateTotals(ctx context.Context, id uuid.UUID, total, available int) error {
	const op = "postgresrepo.CategoryRepo.UpdateTotals"

	tag, err := r.db.Exec(ctx,
		`UPDATE room_categories
		 SET total_rooms = $2, available_rooms = $3, updated_at = now()
		 WHERE id = $1`,
		id, total, available,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *CategoryRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.CategoryStatus) error {
	const op = "postgresrepo.CategoryRepo.SetStatus"

	tag, err := r.db.Exec(ctx,
		`UPDATE room_categories SET status = $2, updated_at = now() WHERE id = $1`,
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

// AdjustAvailable moves the counter by delta in a single conditional
// statement, so it never leaves [0, total_rooms].
func (r *CategoryRepo) AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error {
	const op = "postgresrepo.CategoryRepo.AdjustAvailable"

	tag, err := r.db.Exec(ctx,
		`UPDATE room_categories
		 SET available_rooms = available_rooms + $2, updated_at = now()
		 WHERE id = $1
		   AND available_rooms + $2 BETWEEN 0 AND total_rooms`,
		id, delta,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return wrapDBErr(op, repository.ErrConflict)
	}

	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.CategoryRepo.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM room_categories WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
