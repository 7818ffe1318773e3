package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

type RoomRepo struct {
	db DB
}

func (r *RoomRepo) With(db DB) *RoomRepo {
	cp := *r
	cp.db = db
	return &cp
}

const roomColumns = `id, category_id, number, floor, status, seq, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	if err := row.Scan(
		&rm.ID, &rm.CategoryID, &rm.Number, &rm.Floor, &rm.Status, &rm.Seq, &rm.CreatedAt, &rm.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepo) Create(ctx context.Context, rm *domain.Room) error {
	const op = "postgresrepo.RoomRepo.Create"

	err := r.db.QueryRow(ctx,
		`INSERT INTO rooms(id, category_id, number, floor, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING seq, created_at, updated_at`,
		rm.ID, rm.CategoryID, rm.Number, rm.Floor, rm.Status,
	).Scan(&rm.Seq, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// CreateMany queues one insert per room in a single batch. Duplicate numbers
// within a category are skipped; the returned count is the rows inserted.
func (r *RoomRepo) CreateMany(ctx context.Context, rooms []domain.Room) (int, error) {
	const op = "postgresrepo.RoomRepo.CreateMany"

	if len(rooms) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rm := range rooms {
		batch.Queue(
			`INSERT INTO rooms(id, category_id, number, floor, status)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (category_id, number) DO NOTHING`,
			rm.ID, rm.CategoryID, rm.Number, rm.Floor, rm.Status,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range rooms {
		tag, err := br.Exec()
		if err != nil {
			return inserted, wrapDBErr(op, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := br.Close(); err != nil {
		return inserted, wrapDBErr(op, err)
	}

	return inserted, nil
}

func (r *RoomRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	const op = "postgresrepo.RoomRepo.Get"

	rm, err := scanRoom(r.db.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rm, nil
}

func (r *RoomRepo) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]domain.Room, error) {
	const op = "postgresrepo.RoomRepo.ListByCategory"

	rooms, err := r.list(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE category_id = $1 ORDER BY seq`, categoryID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rooms, nil
}

func (r *RoomRepo) List(ctx context.Context) ([]domain.Room, error) {
	const op = "postgresrepo.RoomRepo.List"

	rooms, err := r.list(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY seq`)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return rooms, nil
}

func (r *RoomRepo) list(ctx context.Context, sql string, args ...any) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}

	return out, rows.Err()
}

func (r *RoomRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.RoomStatus) error {
	const op = "postgresrepo.RoomRepo.SetStatus"

	tag, err := r.db.Exec(ctx,
		`UPDATE rooms SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *RoomRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.RoomRepo.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
