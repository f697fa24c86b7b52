package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create mints a ticket in the reserved state. Must only be called after a
// successful seat claim; the unique constraint on (screening_id, seat_number)
// backstops the relationship invariant between tickets and claimed seats.
//
// Returns:
//   - *domain.Ticket: the created ticket.
//   - error: repository.ErrConflict if a ticket for the pair already exists.
func (r *TicketRepo) Create(ctx context.Context, screeningID int64, seatNumber int, ownerID int64) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.Create"

	db := r.handle()

	t := domain.Ticket{
		ID:          uuid.New(),
		ScreeningID: screeningID,
		SeatNumber:  seatNumber,
		OwnerID:     ownerID,
		Status:      domain.TicketReserved,
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO tickets(id, screening_id, seat_number, owner_id, status)
       	 VALUES ($1, $2, $3, $4, $5)
     	 RETURNING created_at`,
		t.ID, t.ScreeningID, t.SeatNumber, t.OwnerID, t.Status,
	).Scan(&t.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// Get retrieves a ticket by its ID.
//
// Returns:
//   - *domain.Ticket: the ticket when found.
//   - error: repository.ErrNotFound if the ticket is not found.
func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.Get"

	db := r.handle()

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`SELECT id, screening_id, seat_number, owner_id, status, created_at, paid_at
       	 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.ScreeningID, &t.SeatNumber, &t.OwnerID, &t.Status, &t.CreatedAt, &t.PaidAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// MarkPaid flips a ticket's status from reserved to paid. The update is
// conditional on the prior state, so of any set of concurrent callers
// exactly one observes the transition; the rest get ErrNotReserved.
//
// Returns:
//   - *domain.Ticket: the updated ticket.
//   - error: repository.ErrNotFound if the ticket is not found.
//   - error: repository.ErrNotReserved if the ticket is not in the reserved state.
func (r *TicketRepo) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.MarkPaid"

	db := r.handle()

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`UPDATE tickets
        	SET status = $2, paid_at = now()
      	 WHERE id = $1 AND status = $3
     	 RETURNING id, screening_id, seat_number, owner_id, status, created_at, paid_at`,
		id, domain.TicketPaid, domain.TicketReserved,
	).Scan(&t.ID, &t.ScreeningID, &t.SeatNumber, &t.OwnerID, &t.Status, &t.CreatedAt, &t.PaidAt)
	if err == nil {
		return &t, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	// No row matched: either the ticket does not exist or a racing caller
	// already paid it. Distinguish the two for the caller.
	var status domain.TicketStatus
	if err := db.QueryRow(ctx,
		`SELECT status FROM tickets WHERE id = $1`, id,
	).Scan(&status); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil, fmt.Errorf("%s:%w", op, repository.ErrNotReserved)
}

// ListByOwner returns the user's tickets enriched with screening display
// fields. Read-only join; tickets hold a weak reference to the screening.
func (r *TicketRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.TicketWithScreening, error) {
	const op = "postgres.TicketRepo.ListByOwner"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT t.id, t.screening_id, t.seat_number, t.owner_id, t.status, t.created_at, t.paid_at,
        		s.title, s.starts_at, s.poster_url
       	 FROM tickets t
       	 JOIN screenings s ON s.id = t.screening_id
      	 WHERE t.owner_id = $1
      	 ORDER BY t.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.TicketWithScreening
	for rows.Next() {
		var tws domain.TicketWithScreening

		if err := rows.Scan(
			&tws.ID,
			&tws.ScreeningID,
			&tws.SeatNumber,
			&tws.OwnerID,
			&tws.Status,
			&tws.CreatedAt,
			&tws.PaidAt,
			&tws.ScreeningTitle,
			&tws.ScreeningStarts,
			&tws.PosterURL,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, tws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
