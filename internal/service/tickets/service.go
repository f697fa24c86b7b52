// Package tickets owns the reserved-to-paid state machine. Paid is
// terminal; there is no cancellation transition.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/notify"
	"github.com/movieflex/movieflex/internal/repository"
)

// TicketStore persists tickets. MarkPaid must be conditional on the prior
// reserved state so concurrent callers are serialized by the store.
type TicketStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.TicketWithScreening, error)
}

// UserDirectory resolves a ticket owner to a notification recipient.
type UserDirectory interface {
	Get(ctx context.Context, id int64) (*domain.User, error)
}

// ScreeningReader supplies display fields for the notification body.
type ScreeningReader interface {
	Get(ctx context.Context, screeningID int64) (*domain.Screening, error)
}

type Service struct {
	store      TicketStore
	users      UserDirectory
	screenings ScreeningReader
	dispatcher notify.Dispatcher
	logger     *slog.Logger
}

func New(
	store TicketStore,
	users UserDirectory,
	screenings ScreeningReader,
	dispatcher notify.Dispatcher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:      store,
		users:      users,
		screenings: screenings,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// MarkPaid transitions a ticket from reserved to paid.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ticketID: ID of the ticket to pay.
//   - requesterID: ID of the authenticated requester.
//
// Returns:
//   - *domain.Ticket: the updated ticket with status paid.
//   - error: tickets.ErrTicketNotFound if the ticket is unknown.
//   - error: tickets.ErrForbidden if the requester does not own the ticket.
//   - error: tickets.ErrAlreadyPaid if the ticket is already paid; among
//     concurrent calls exactly one succeeds and the rest get this error.
func (s *Service) MarkPaid(ctx context.Context, ticketID uuid.UUID, requesterID int64) (*domain.Ticket, error) {
	const op = "service.tickets.MarkPaid"

	t, err := s.store.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if t.OwnerID != requesterID {
		return nil, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	updated, err := s.store.MarkPaid(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotReserved) {
			return nil, fmt.Errorf("%s:%w", op, ErrAlreadyPaid)
		}

		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Fire-and-forget: the payment response never waits on dispatch and a
	// dispatch failure never reverts the status.
	if s.dispatcher != nil {
		go s.notifyPaid(context.WithoutCancel(ctx), updated)
	}

	return updated, nil
}

// ListTicketsFor returns the requester's tickets with screening display
// fields joined in.
func (s *Service) ListTicketsFor(ctx context.Context, ownerID int64) ([]domain.TicketWithScreening, error) {
	const op = "service.tickets.ListTicketsFor"

	out, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) notifyPaid(ctx context.Context, t *domain.Ticket) {
	owner, err := s.users.Get(ctx, t.OwnerID)
	if err != nil {
		s.logger.Error("notification skipped: owner lookup failed",
			"ticket_id", t.ID, "owner_id", t.OwnerID, "error", err)
		return
	}

	title := ""
	if s.screenings != nil {
		if scr, err := s.screenings.Get(ctx, t.ScreeningID); err == nil {
			title = scr.Title
		}
	}

	n := notify.Notification{
		Recipient: owner.Email,
		Subject:   strings.TrimSpace("Your MovieFlex Ticket · " + title),
		Body: strings.Join([]string{
			"Hi " + owner.Name + ",",
			"",
			"Thank you for your purchase on MovieFlex. Here are your ticket details:",
			"Movie: " + title,
			fmt.Sprintf("Seat: %d", t.SeatNumber),
			"Booked at: " + t.CreatedAt.Format("Jan 2, 2006 3:04 PM"),
			"",
			"Enjoy the show!",
		}, "\n"),
	}

	if err := s.dispatcher.Dispatch(ctx, n); err != nil {
		s.logger.Error("notification dispatch failed",
			"ticket_id", t.ID, "recipient", owner.Email, "error", err)
	}
}
