// Package booking implements the reservation coordinator: it turns a
// seat-claim request into a guaranteed-unique allocation backed by the
// store's own conditional-insert primitive.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
	redisrepo "github.com/movieflex/movieflex/internal/repository/redis"
)

// SeatCatalog is the screening-catalog collaborator. TryClaimSeat must be
// atomic at the store: among concurrent calls for the same
// (screening, seat) pair, exactly one returns true.
type SeatCatalog interface {
	Get(ctx context.Context, screeningID int64) (*domain.Screening, error)
	TryClaimSeat(ctx context.Context, screeningID int64, seatNumber int) (bool, error)
	ReleaseSeat(ctx context.Context, screeningID int64, seatNumber int) error
}

// TicketMinter creates the ticket record for a claimed seat.
type TicketMinter interface {
	Create(ctx context.Context, screeningID int64, seatNumber int, ownerID int64) (*domain.Ticket, error)
}

type Service struct {
	catalog SeatCatalog
	tickets TicketMinter
	cache   *redisrepo.Cache
	pubsub  *redisrepo.ScreeningsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	logger  *slog.Logger
}

func New(
	catalog SeatCatalog,
	tickets TicketMinter,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ScreeningsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		catalog: catalog,
		tickets: tickets,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		logger:  logger,
	}
}

// ReserveSeat claims seatNumber on the screening for requesterID and mints
// a reserved ticket for it.
//
// Parameters:
//   - ctx: request-scoped context.
//   - screeningID: ID of the screening to book.
//   - seatNumber: 1-based seat to claim.
//   - requesterID: ID of the authenticated requester.
//   - rlKey: rate-limit bucket key; empty disables limiting.
//
// Returns:
//   - *domain.Ticket: the minted ticket with status reserved.
//   - error: booking.ErrSeatOutOfRange if seatNumber is not in [1, capacity].
//   - error: booking.ErrScreeningNotFound if the screening does not exist.
//   - error: booking.ErrSeatAlreadyBooked if the seat is already claimed.
func (s *Service) ReserveSeat(
	ctx context.Context,
	screeningID int64,
	seatNumber int,
	requesterID int64,
	rlKey string,
) (*domain.Ticket, error) {
	const op = "service.booking.ReserveSeat"

	if seatNumber <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrSeatOutOfRange)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	scr, err := s.catalog.Get(ctx, screeningID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrScreeningNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if seatNumber > scr.Capacity {
		return nil, fmt.Errorf("%s:%w", op, ErrSeatOutOfRange)
	}

	// The conditional claim is the authoritative check: the preceding read
	// is advisory and two racing requests are serialized by the store, not
	// by this process.
	claimed, err := s.catalog.TryClaimSeat(ctx, screeningID, seatNumber)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if !claimed {
		return nil, fmt.Errorf("%s:%w", op, ErrSeatAlreadyBooked)
	}

	ticket, err := s.tickets.Create(ctx, screeningID, seatNumber, requesterID)
	if err != nil {
		// Undo the claim so the seat is not stranded claimed-but-ticketless.
		if relErr := s.catalog.ReleaseSeat(ctx, screeningID, seatNumber); relErr != nil {
			s.logger.Error("seat release after mint failure failed",
				"screening_id", screeningID,
				"seat", seatNumber,
				"error", relErr,
			)
		}

		return nil, fmt.Errorf("%s: mint ticket: %w", op, err)
	}

	s.afterBooked(ctx, screeningID)

	return ticket, nil
}

func (s *Service) afterBooked(ctx context.Context, screeningID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateScreening(ctx, screeningID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishScreeningChanged(ctx, screeningID)
	}
}
