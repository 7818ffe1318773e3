package seating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/aggregate"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/uow"
)

// Approve completes a registration whose payment an operator checked by
// hand. The seat is taken in the same unit of work; a sold out pool leaves
// the registration unchanged.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, notes string) (*domain.Registration, error) {
	const op = "service.seating.Approve"

	var approved domain.Registration

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		g, err := tx.Registrations().GetForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}

		switch g.Status {
		case domain.RegistrationPending, domain.RegistrationFailed, domain.RegistrationRejected:
		default:
			return ErrNotApprovable
		}

		if _, err := tx.SeatPools().Book(ctx, g.Category, g.Quantity); err != nil {
			return mapPoolErr(err)
		}

		g.Status = domain.RegistrationCompleted
		g.FailureReason = ""
		if notes = strings.TrimSpace(notes); notes != "" {
			g.AdminNotes = notes
		}

		if err := tx.Registrations().Update(ctx, g); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateEmail
			}
			return err
		}

		approved = *g

		after(func(ctx context.Context) {
			s.seatsChanged(ctx, g.Category)
			s.notify(ctx, notify.EventRegistrationComplete, *g)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "registration approved",
		slog.String("registration_id", approved.ID.String()),
		slog.String("category", approved.Category),
	)

	return &approved, nil
}

// Reject turns a registration down. Only a completed one holds a seat, so
// only that case gives a seat back.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, notes string) (*domain.Registration, error) {
	const op = "service.seating.Reject"

	var rejected domain.Registration

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
		case domain.RegistrationPending, domain.RegistrationFailed:
		default:
			return ErrNotRejectable
		}

		g.Status = domain.RegistrationRejected
		if notes = strings.TrimSpace(notes); notes != "" {
			g.AdminNotes = notes
		}
		if err := tx.Registrations().Update(ctx, g); err != nil {
			return err
		}

		rejected = *g

		after(func(ctx context.Context) {
			s.notify(ctx, notify.EventRegistrationRejected, *g)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "registration rejected",
		slog.String("registration_id", rejected.ID.String()),
		slog.String("category", rejected.Category),
	)

	return &rejected, nil
}

type Page struct {
	Items []domain.Registration `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
	Pages int                   `json:"pages"`
}

// List returns one page of registrations, newest first. An empty status or
// "all" lists every status.
func (s *Service) List(ctx context.Context, status domain.RegistrationStatus, page, limit int) (*Page, error) {
	const op = "service.seating.List"

	if status == "all" {
		status = ""
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown status"))
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	items, total, err := s.store.Registrations().List(ctx, domain.RegistrationFilter{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if items == nil {
		items = []domain.Registration{}
	}

	return &Page{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func (s *Service) Stats(ctx context.Context) (*aggregate.RegistrationStats, error) {
	const op = "service.seating.Stats"

	totals, err := s.store.Registrations().StatusTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	stats := aggregate.Registrations(totals)
	return &stats, nil
}

// Tracking is the public view of a registration looked up by order ref.
type Tracking struct {
	ID        uuid.UUID                 `json:"id"`
	FullName  string                    `json:"full_name"`
	Email     string                    `json:"email"`
	Category  string                    `json:"category"`
	Amount    float64                   `json:"amount"`
	Currency  domain.Currency           `json:"currency"`
	OrderRef  string                    `json:"order_ref"`
	Status    domain.RegistrationStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Track looks a registration up by its order ref. The email is masked and
// operator notes are left out.
func (s *Service) Track(ctx context.Context, orderRef string) (*Tracking, error) {
	const op = "service.seating.Track"

	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("order_ref", "is required"))
	}

	g, err := s.store.Registrations().GetByOrderRef(ctx, orderRef)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s:%w", op, ErrRegistrationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Tracking{
		ID:        g.ID,
		FullName:  g.FullName,
		Email:     maskEmail(g.Email),
		Category:  g.Category,
		Amount:    g.Amount,
		Currency:  g.Currency,
		OrderRef:  g.OrderRef,
		Status:    g.Status,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}, nil
}

// maskEmail keeps the first three characters of the local part.
func maskEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***@" + host
}
