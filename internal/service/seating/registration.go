package seating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/uow"
)

type RegisterRequest struct {
	FullName string
	Email    string
	Country  string
	Phone    string
	Category string
}

func (r *RegisterRequest) normalize() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Country = strings.TrimSpace(r.Country)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))

	switch {
	case r.FullName == "":
		return domain.Invalid("full_name", "is required")
	case r.Email == "":
		return domain.Invalid("email", "is required")
	case r.Country == "":
		return domain.Invalid("country", "is required")
	case r.Phone == "":
		return domain.Invalid("phone", "is required")
	case r.Category == "":
		return domain.Invalid("category", "is required")
	}

	if !domain.ValidEmail(r.Email) {
		return domain.Invalid("email", "is not a valid email address")
	}

	return nil
}

// Register opens a pending registration for one seat. It checks that the
// pool has a free seat right now but reserves nothing: the seat is taken by
// VerifyPayment.
//
// Returns:
//   - *domain.Registration: the pending registration with its order ref.
//   - error: a *domain.ValidationError, ErrSoldOut or ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.Registration, error) {
	const op = "service.seating.Register"

	if err := req.normalize(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var created domain.Registration

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		pool, err := tx.SeatPools().Get(ctx, req.Category)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Invalid("category", "invalid category")
		}
		if err != nil {
			return err
		}

		if pool.AvailableSeats() < 1 {
			return ErrSoldOut
		}

		if _, err := tx.Registrations().FindOpenByEmail(ctx, req.Email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		g := domain.Registration{
			ID:       uuid.New(),
			FullName: req.FullName,
			Email:    req.Email,
			Country:  req.Country,
			Phone:    req.Phone,
			Category: pool.Category,
			Quantity: 1,
			Amount:   pool.Price,
			Currency: pool.Currency,
			OrderRef: newOrderRef(),
			Status:   domain.RegistrationPending,
		}

		if err := tx.Registrations().Create(ctx, &g); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateEmail
			}
			return err
		}

		created = g
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "registration created",
		slog.String("registration_id", created.ID.String()),
		slog.String("category", created.Category),
	)

	return &created, nil
}

type VerifyRequest struct {
	OrderRef   string
	PaymentRef string
	Signature  string
}

// VerifyPayment settles a pending registration. A rejected signature or a
// sold out pool marks the registration failed; the failure is committed and
// then returned as the error. A verified payment takes the seat and
// completes the registration in the same unit of work.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyRequest) (*domain.Registration, error) {
	const op = "service.seating.VerifyPayment"

	if req.OrderRef == "" || req.PaymentRef == "" || req.Signature == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("payment", "order, payment and signature are required"))
	}

	ok, err := s.verifier.Verify(ctx, req.OrderRef, req.PaymentRef, req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var (
		settled domain.Registration
		verdict error
	)

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		verdict = nil

		g, err := tx.Registrations().GetByOrderRefForUpdate(ctx, req.OrderRef)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}

		if g.Status != domain.RegistrationPending {
			return ErrNotPending
		}

		g.PaymentRef = req.PaymentRef

		switch {
		case !ok:
			g.Status = domain.RegistrationFailed
			g.FailureReason = "invalid signature"
			verdict = ErrInvalidSignature
		default:
			_, err := tx.SeatPools().Book(ctx, g.Category, g.Quantity)
			switch {
			case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
				g.Status = domain.RegistrationFailed
				g.FailureReason = "no seats available"
				verdict = ErrSoldOut
			case err != nil:
				return err
			default:
				g.Status = domain.RegistrationCompleted
				g.TransactionID = req.PaymentRef
				g.FailureReason = ""
			}
		}

		if err := tx.Registrations().Update(ctx, g); err != nil {
			return err
		}

		settled = *g

		if g.Status == domain.RegistrationCompleted {
			after(func(ctx context.Context) {
				s.seatsChanged(ctx, g.Category)
				s.notify(ctx, notify.EventRegistrationComplete, *g)
			})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "payment verified",
		slog.String("registration_id", settled.ID.String()),
		slog.String("status", string(settled.Status)),
	)

	if verdict != nil {
		return &settled, fmt.Errorf("%s:%w", op, verdict)
	}

	return &settled, nil
}

// Cancel cancels a registration. A completed one gives its seat back.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	const op = "service.seating.Cancel"

	var cancelled domain.Registration

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		g, err := tx.Registrations().GetForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}

		switch g.Status {
		case domain.RegistrationCompleted:
			if _, err := tx.SeatPools().Release(ctx, g.Category, g.Quantity); err != nil &&
				!errors.Is(err, repository.ErrNotFound) {
				return err
			}
			after(func(ctx context.Context) { s.seatsChanged(ctx, g.Category) })
		case domain.RegistrationPending:
		default:
			return ErrNotCancellable
		}

		g.Status = domain.RegistrationCancelled
		if err := tx.Registrations().Update(ctx, g); err != nil {
			return err
		}

		cancelled = *g
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &cancelled, nil
}

// ExpirePending cancels registrations left pending longer than the
// configured TTL and returns how many it cancelled.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	const op = "service.seating.ExpirePending"

	var n int

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, _ func(uow.AfterCommit)) error {
		expired, err := tx.Registrations().ExpirePending(ctx, s.now().Add(-s.ttl))
		if err != nil {
			return err
		}
		n = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	if n > 0 {
		s.logger.InfoContext(ctx, "pending registrations expired", slog.Int("count", n))
	}

	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Registration, error) {
	const op = "service.seating.Get"

	g, err := s.store.Registrations().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s:%w", op, ErrRegistrationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return g, nil
}

func (s *Service) notify(ctx context.Context, typ string, g domain.Registration) {
	notify.Send(ctx, s.notifier, s.logger, notify.Event{
		Type:           typ,
		RegistrationID: g.ID.String(),
		Status:         string(g.Status),
		Email:          g.Email,
		Name:           g.FullName,
		Amount:         g.Amount,
		At:             s.now().UTC(),
	})
}

func newOrderRef() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
