package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/availability"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/repository"
)

func notFound(op string) error { return fmt.Errorf("%s:%w", op, repository.ErrNotFound) }
func conflict(op string) error { return fmt.Errorf("%s:%w", op, repository.ErrConflict) }

type categoryRepo struct{ v *view }

func (r *categoryRepo) Create(_ context.Context, c *domain.Category) error {
	const op = "memory.CategoryRepo.Create"

	return r.v.do(func(st *state) error {
		if _, ok := st.categories[c.ID]; ok {
			return conflict(op)
		}
		for _, other := range st.categories {
			if strings.EqualFold(other.Name, c.Name) {
				return conflict(op)
			}
		}
		c.CreatedAt = r.v.now()
		c.UpdatedAt = c.CreatedAt
		st.categories[c.ID] = *c
		return nil
	})
}

func (r *categoryRepo) Get(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	const op = "memory.CategoryRepo.Get"

	var out domain.Category
	err := r.v.do(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return notFound(op)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate is Get: the store mutex already serializes units of work.
func (r *categoryRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return r.Get(ctx, id)
}

func (r *categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	_ = r.v.do(func(st *state) error {
		for _, c := range st.categories {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *categoryRepo) UpdateTotals(_ context.Context, id uuid.UUID, total, available int) error {
	const op = "memory.CategoryRepo.UpdateTotals"

	return r.v.do(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return notFound(op)
		}
		if total < 0 || available < 0 || available > total {
			return conflict(op)
		}
		c.TotalRooms, c.AvailableRooms = total, available
		c.UpdatedAt = r.v.now()
		st.categories[id] = c
		return nil
	})
}

func (r *categoryRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.CategoryStatus) error {
	const op = "memory.CategoryRepo.SetStatus"

	return r.v.do(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return notFound(op)
		}
		c.Status = status
		c.UpdatedAt = r.v.now()
		st.categories[id] = c
		return nil
	})
}

func (r *categoryRepo) AdjustAvailable(_ context.Context, id uuid.UUID, delta int) error {
	const op = "memory.CategoryRepo.AdjustAvailable"

	return r.v.do(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return notFound(op)
		}
		next := c.AvailableRooms + delta
		if next < 0 || next > c.TotalRooms {
			return conflict(op)
		}
		c.AvailableRooms = next
		c.UpdatedAt = r.v.now()
		st.categories[id] = c
		return nil
	})
}

// Delete removes the category and its rooms, like the cascading foreign key
// in the SQL schema.
func (r *categoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	const op = "memory.CategoryRepo.Delete"

	return r.v.do(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return notFound(op)
		}
		delete(st.categories, id)
		for rid, rm := range st.rooms {
			if rm.CategoryID == id {
				delete(st.rooms, rid)
			}
		}
		return nil
	})
}

type roomRepo struct{ v *view }

func (r *roomRepo) insert(st *state, rm *domain.Room) bool {
	for _, other := range st.rooms {
		if other.CategoryID == rm.CategoryID && other.Number == rm.Number {
			return false
		}
	}
	st.roomSeq++
	rm.Seq = st.roomSeq
	rm.CreatedAt = r.v.now()
	rm.UpdatedAt = rm.CreatedAt
	st.rooms[rm.ID] = *rm
	return true
}

func (r *roomRepo) Create(_ context.Context, rm *domain.Room) error {
	const op = "memory.RoomRepo.Create"

	return r.v.do(func(st *state) error {
		if _, ok := st.rooms[rm.ID]; ok {
			return conflict(op)
		}
		if !r.insert(st, rm) {
			return conflict(op)
		}
		return nil
	})
}

func (r *roomRepo) CreateMany(_ context.Context, rooms []domain.Room) (int, error) {
	inserted := 0
	err := r.v.do(func(st *state) error {
		for i := range rooms {
			if r.insert(st, &rooms[i]) {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

func (r *roomRepo) Get(_ context.Context, id uuid.UUID) (*domain.Room, error) {
	const op = "memory.RoomRepo.Get"

	var out domain.Room
	err := r.v.do(func(st *state) error {
		rm, ok := st.rooms[id]
		if !ok {
			return notFound(op)
		}
		out = rm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *roomRepo) ListByCategory(_ context.Context, categoryID uuid.UUID) ([]domain.Room, error) {
	return r.filter(func(rm domain.Room) bool { return rm.CategoryID == categoryID }), nil
}

func (r *roomRepo) List(_ context.Context) ([]domain.Room, error) {
	return r.filter(func(domain.Room) bool { return true }), nil
}

func (r *roomRepo) filter(keep func(domain.Room) bool) []domain.Room {
	var out []domain.Room
	_ = r.v.do(func(st *state) error {
		for _, rm := range st.rooms {
			if keep(rm) {
				out = append(out, rm)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (r *roomRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.RoomStatus) error {
	const op = "memory.RoomRepo.SetStatus"

	return r.v.do(func(st *state) error {
		rm, ok := st.rooms[id]
		if !ok {
			return notFound(op)
		}
		rm.Status = status
		rm.UpdatedAt = r.v.now()
		st.rooms[id] = rm
		return nil
	})
}

func (r *roomRepo) Delete(_ context.Context, id uuid.UUID) error {
	const op = "memory.RoomRepo.Delete"

	return r.v.do(func(st *state) error {
		if _, ok := st.rooms[id]; !ok {
			return notFound(op)
		}
		delete(st.rooms, id)
		return nil
	})
}

type reservationRepo struct{ v *view }

// Create enforces the same rule as the exclusion constraint of the SQL
// schema: no two active stays of one room overlap.
func (r *reservationRepo) Create(_ context.Context, rv *domain.Reservation) error {
	const op = "memory.ReservationRepo.Create"

	return r.v.do(func(st *state) error {
		if _, ok := st.reservations[rv.ID]; ok {
			return conflict(op)
		}
		if !rv.CheckIn.Before(rv.CheckOut) {
			return conflict(op)
		}
		if rv.Status.Active() && clashes(st, rv.ID, rv.RoomID, rv.CheckIn, rv.CheckOut) {
			return conflict(op)
		}
		rv.CreatedAt = r.v.now()
		rv.UpdatedAt = rv.CreatedAt
		st.reservations[rv.ID] = *rv
		return nil
	})
}

func clashes(st *state, self, roomID uuid.UUID, in, out time.Time) bool {
	for _, other := range st.reservations {
		if other.ID == self || other.RoomID != roomID || !other.Status.Active() {
			continue
		}
		if availability.Overlaps(other.CheckIn, other.CheckOut, in, out) {
			return true
		}
	}
	return false
}

func (r *reservationRepo) Get(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "memory.ReservationRepo.Get"

	var out domain.Reservation
	err := r.v.do(func(st *state) error {
		rv, ok := st.reservations[id]
		if !ok {
			return notFound(op)
		}
		out = rv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.Get(ctx, id)
}

func (r *reservationRepo) FindOverlapping(_ context.Context, q domain.OverlapQuery) ([]domain.Reservation, error) {
	var all []domain.Reservation
	_ = r.v.do(func(st *state) error {
		for _, rv := range st.reservations {
			if q.RoomID != uuid.Nil || rv.CategoryID == q.CategoryID {
				all = append(all, rv)
			}
		}
		return nil
	})

	out := availability.FindOverlapping(all, q.RoomID, q.CheckIn, q.CheckOut, q.Statuses...)
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (r *reservationRepo) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status domain.ReservationStatus,
	roomID uuid.UUID,
) error {
	const op = "memory.ReservationRepo.UpdateStatus"

	return r.v.do(func(st *state) error {
		rv, ok := st.reservations[id]
		if !ok {
			return notFound(op)
		}
		if status.Active() && clashes(st, id, roomID, rv.CheckIn, rv.CheckOut) {
			return conflict(op)
		}
		rv.Status, rv.RoomID = status, roomID
		rv.UpdatedAt = r.v.now()
		st.reservations[id] = rv
		return nil
	})
}

func (r *reservationRepo) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	const op = "memory.ReservationRepo.UpdatePaymentStatus"

	return r.v.do(func(st *state) error {
		rv, ok := st.reservations[id]
		if !ok {
			return notFound(op)
		}
		rv.PaymentStatus = status
		rv.UpdatedAt = r.v.now()
		st.reservations[id] = rv
		return nil
	})
}

func (r *reservationRepo) AppendHistory(_ context.Context, c domain.StatusChange) error {
	return r.v.do(func(st *state) error {
		st.history[c.ReservationID] = append(st.history[c.ReservationID], c)
		return nil
	})
}

func (r *reservationRepo) History(_ context.Context, id uuid.UUID) ([]domain.StatusChange, error) {
	var out []domain.StatusChange
	_ = r.v.do(func(st *state) error {
		out = append(out, st.history[id]...)
		return nil
	})
	return out, nil
}

func (r *reservationRepo) List(_ context.Context, f domain.ReservationFilter) ([]domain.Reservation, int, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var all []domain.Reservation
	_ = r.v.do(func(st *state) error {
		for _, rv := range st.reservations {
			if f.Status != "" && rv.Status != f.Status {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(rv.GuestName), search) &&
				!strings.Contains(strings.ToLower(rv.GuestEmail), search) &&
				!strings.Contains(strings.ToLower(rv.GuestPhone), search) {
				continue
			}
			all = append(all, rv)
		}
		return nil
	})

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	start := min(max(f.Offset, 0), total)
	end := min(start+limit, total)

	return all[start:end], total, nil
}

func (r *reservationRepo) count(keep func(domain.Reservation) bool) int {
	n := 0
	_ = r.v.do(func(st *state) error {
		for _, rv := range st.reservations {
			if keep(rv) {
				n++
			}
		}
		return nil
	})
	return n
}

func (r *reservationRepo) CountActiveByCategory(_ context.Context, categoryID uuid.UUID) (int, error) {
	return r.count(func(rv domain.Reservation) bool {
		return rv.CategoryID == categoryID && rv.Status.Active()
	}), nil
}

func (r *reservationRepo) CountActiveByRoom(_ context.Context, roomID uuid.UUID) (int, error) {
	return r.count(func(rv domain.Reservation) bool {
		return rv.RoomID == roomID && rv.Status.Active()
	}), nil
}

func (r *reservationRepo) OccupiedRooms(_ context.Context, categoryID uuid.UUID) (int, error) {
	seen := map[uuid.UUID]struct{}{}
	_ = r.v.do(func(st *state) error {
		for _, rv := range st.reservations {
			if rv.CategoryID != categoryID || !rv.Status.Active() {
				continue
			}
			if _, ok := st.rooms[rv.RoomID]; ok {
				seen[rv.RoomID] = struct{}{}
			}
		}
		return nil
	})
	return len(seen), nil
}

func (r *reservationRepo) StatusTotals(_ context.Context) ([]domain.StatusTotal, error) {
	byStatus := map[domain.ReservationStatus]*domain.StatusTotal{}
	_ = r.v.do(func(st *state) error {
		for _, rv := range st.reservations {
			t, ok := byStatus[rv.Status]
			if !ok {
				t = &domain.StatusTotal{Status: rv.Status}
				byStatus[rv.Status] = t
			}
			t.Count++
			t.Sum += rv.TotalPrice
		}
		return nil
	})

	out := make([]domain.StatusTotal, 0, len(byStatus))
	for _, t := range byStatus {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.StatusTotal) int { return strings.Compare(string(a.Status), string(b.Status)) })
	return out, nil
}

type seatPoolRepo struct{ v *view }

func (r *seatPoolRepo) Upsert(_ context.Context, p *domain.SeatPool) error {
	const op = "memory.SeatPoolRepo.Upsert"

	return r.v.do(func(st *state) error {
		if cur, ok := st.seatPools[p.Category]; ok {
			p.BookedSeats = cur.BookedSeats
		}
		if p.BookedSeats < 0 || p.BookedSeats > p.TotalSeats {
			return conflict(op)
		}
		p.UpdatedAt = r.v.now()
		st.seatPools[p.Category] = *p
		return nil
	})
}

func (r *seatPoolRepo) Get(_ context.Context, category string) (*domain.SeatPool, error) {
	const op = "memory.SeatPoolRepo.Get"

	var out domain.SeatPool
	err := r.v.do(func(st *state) error {
		p, ok := st.seatPools[category]
		if !ok {
			return notFound(op)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *seatPoolRepo) List(_ context.Context) ([]domain.SeatPool, error) {
	var out []domain.SeatPool
	_ = r.v.do(func(st *state) error {
		for _, p := range st.seatPools {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r *seatPoolRepo) Book(_ context.Context, category string, qty int) (*domain.SeatPool, error) {
	const op = "memory.SeatPoolRepo.Book"

	var out domain.SeatPool
	err := r.v.do(func(st *state) error {
		p, ok := st.seatPools[category]
		if !ok {
			return notFound(op)
		}
		if !availability.SeatsAvailable(p, qty) {
			return conflict(op)
		}
		p.BookedSeats += qty
		p.UpdatedAt = r.v.now()
		st.seatPools[category] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *seatPoolRepo) Release(_ context.Context, category string, qty int) (*domain.SeatPool, error) {
	const op = "memory.SeatPoolRepo.Release"

	var out domain.SeatPool
	err := r.v.do(func(st *state) error {
		p, ok := st.seatPools[category]
		if !ok {
			return notFound(op)
		}
		p.BookedSeats = max(p.BookedSeats-qty, 0)
		p.UpdatedAt = r.v.now()
		st.seatPools[category] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type registrationRepo struct{ v *view }

func (r *registrationRepo) Create(_ context.Context, g *domain.Registration) error {
	const op = "memory.RegistrationRepo.Create"

	return r.v.do(func(st *state) error {
		if _, ok := st.seatPools[g.Category]; !ok {
			return conflict(op)
		}
		for _, other := range st.registrations {
			if other.ID == g.ID || other.OrderRef == g.OrderRef {
				return conflict(op)
			}
			if g.Status.Open() && other.Status.Open() && strings.EqualFold(other.Email, g.Email) {
				return conflict(op)
			}
		}
		g.CreatedAt = r.v.now()
		g.UpdatedAt = g.CreatedAt
		st.registrations[g.ID] = *g
		return nil
	})
}

func (r *registrationRepo) find(op string, match func(domain.Registration) bool) (*domain.Registration, error) {
	var (
		out   domain.Registration
		found bool
	)
	_ = r.v.do(func(st *state) error {
		for _, g := range st.registrations {
			if match(g) {
				out, found = g, true
				return nil
			}
		}
		return nil
	})
	if !found {
		return nil, notFound(op)
	}
	return &out, nil
}

func (r *registrationRepo) Get(_ context.Context, id uuid.UUID) (*domain.Registration, error) {
	return r.find("memory.RegistrationRepo.Get", func(g domain.Registration) bool { return g.ID == id })
}

func (r *registrationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	return r.Get(ctx, id)
}

func (r *registrationRepo) GetByOrderRef(_ context.Context, orderRef string) (*domain.Registration, error) {
	return r.find("memory.RegistrationRepo.GetByOrderRef", func(g domain.Registration) bool {
		return g.OrderRef == orderRef
	})
}

func (r *registrationRepo) GetByOrderRefForUpdate(_ context.Context, orderRef string) (*domain.Registration, error) {
	return r.find("memory.RegistrationRepo.GetByOrderRefForUpdate", func(g domain.Registration) bool {
		return g.OrderRef == orderRef
	})
}

func (r *registrationRepo) FindOpenByEmail(_ context.Context, email string) (*domain.Registration, error) {
	return r.find("memory.RegistrationRepo.FindOpenByEmail", func(g domain.Registration) bool {
		return g.Status.Open() && strings.EqualFold(g.Email, email)
	})
}

func (r *registrationRepo) Update(_ context.Context, g *domain.Registration) error {
	const op = "memory.RegistrationRepo.Update"

	return r.v.do(func(st *state) error {
		cur, ok := st.registrations[g.ID]
		if !ok {
			return notFound(op)
		}
		if g.Status.Open() && !cur.Status.Open() {
			for _, other := range st.registrations {
				if other.ID != g.ID && other.Status.Open() && strings.EqualFold(other.Email, cur.Email) {
					return conflict(op)
				}
			}
		}
		cur.PaymentRef = g.PaymentRef
		cur.Status = g.Status
		cur.TransactionID = g.TransactionID
		cur.FailureReason = g.FailureReason
		cur.AdminNotes = g.AdminNotes
		cur.UpdatedAt = r.v.now()
		g.UpdatedAt = cur.UpdatedAt
		st.registrations[g.ID] = cur
		return nil
	})
}

func (r *registrationRepo) ExpirePending(_ context.Context, createdBefore time.Time) ([]domain.Registration, error) {
	var out []domain.Registration
	_ = r.v.do(func(st *state) error {
		for id, g := range st.registrations {
			if g.Status != domain.RegistrationPending || !g.CreatedAt.Before(createdBefore) {
				continue
			}
			g.Status = domain.RegistrationCancelled
			g.FailureReason = "payment window expired"
			g.UpdatedAt = r.v.now()
			st.registrations[id] = g
			out = append(out, g)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *registrationRepo) List(_ context.Context, f domain.RegistrationFilter) ([]domain.Registration, int, error) {
	var all []domain.Registration
	_ = r.v.do(func(st *state) error {
		for _, g := range st.registrations {
			if f.Status == "" || g.Status == f.Status {
				all = append(all, g)
			}
		}
		return nil
	})

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	start := min(max(f.Offset, 0), total)
	end := min(start+limit, total)

	return all[start:end], total, nil
}

func (r *registrationRepo) StatusTotals(_ context.Context) ([]domain.RegistrationTotal, error) {
	type key struct {
		status   domain.RegistrationStatus
		currency domain.Currency
	}
	byStatus := map[key]*domain.RegistrationTotal{}
	_ = r.v.do(func(st *state) error {
		for _, g := range st.registrations {
			k := key{g.Status, g.Currency}
			t, ok := byStatus[k]
			if !ok {
				t = &domain.RegistrationTotal{Status: g.Status, Currency: g.Currency}
				byStatus[k] = t
			}
			t.Count++
			t.Amount += g.Amount
		}
		return nil
	})

	out := make([]domain.RegistrationTotal, 0, len(byStatus))
	for _, t := range byStatus {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.RegistrationTotal) int {
		if c := strings.Compare(string(a.Status), string(b.Status)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Currency), string(b.Currency))
	})
	return out, nil
}
