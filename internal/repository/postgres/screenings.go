package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
)

type ScreeningRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ScreeningRepo) With(db DB) *ScreeningRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ScreeningRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get retrieves a screening by its ID, including the current claimed-seat set.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the screening to retrieve.
//
// Returns:
//   - *domain.Screening: the screening when found.
//   - error: repository.ErrNotFound if the screening is not found.
func (r *ScreeningRepo) Get(ctx context.Context, id int64) (*domain.Screening, error) {
	const op = "postgres.ScreeningRepo.Get"

	db := r.handle()

	var s domain.Screening
	err := db.QueryRow(ctx,
		`SELECT id, title, poster_url, capacity, starts_at, genre, duration, price_cents, created_at
       	 FROM screenings WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Title, &s.PosterURL, &s.Capacity, &s.StartsAt, &s.Genre, &s.Duration, &s.PriceCents, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT seat_number
       	 FROM screening_seats
      	 WHERE screening_id = $1
      	 ORDER BY seat_number`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		s.ClaimedSeats = append(s.ClaimedSeats, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &s, nil
}

// List lists screenings ordered by start time.
func (r *ScreeningRepo) List(ctx context.Context, limit, offset int) ([]domain.Screening, error) {
	const op = "postgres.ScreeningRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, title, poster_url, capacity, starts_at, genre, duration, price_cents, created_at
		 FROM screenings
		 ORDER BY starts_at
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Screening
	for rows.Next() {
		var s domain.Screening
		if err := rows.Scan(&s.ID, &s.Title, &s.PosterURL, &s.Capacity, &s.StartsAt, &s.Genre, &s.Duration, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// TryClaimSeat atomically adds seatNumber to the screening's claimed-seat
// set. The primary key on (screening_id, seat_number) is the uniqueness
// mechanism: of any number of concurrent callers racing on the same pair,
// the store lets exactly one insert succeed.
//
// Returns:
//   - bool: true iff this call performed the addition.
func (r *ScreeningRepo) TryClaimSeat(ctx context.Context, screeningID int64, seatNumber int) (bool, error) {
	const op = "postgres.ScreeningRepo.TryClaimSeat"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`INSERT INTO screening_seats(screening_id, seat_number)
       	 VALUES ($1, $2)
      	 ON CONFLICT (screening_id, seat_number) DO NOTHING`,
		screeningID, seatNumber,
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected() == 1, nil
}

// ReleaseSeat removes a claimed seat. Compensating action for the
// claim-then-mint path only; no public operation releases seats.
func (r *ScreeningRepo) ReleaseSeat(ctx context.Context, screeningID int64, seatNumber int) error {
	const op = "postgres.ScreeningRepo.ReleaseSeat"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`DELETE FROM screening_seats
      	 WHERE screening_id = $1 AND seat_number = $2`,
		screeningID, seatNumber,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Create inserts a screening record and returns its ID.
func (r *ScreeningRepo) Create(ctx context.Context, s *domain.Screening) (int64, error) {
	const op = "postgres.ScreeningRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO screenings(title, poster_url, capacity, starts_at, genre, duration, price_cents)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7)
     	 RETURNING id`,
		s.Title, s.PosterURL, s.Capacity, s.StartsAt, s.Genre, s.Duration, s.PriceCents,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// Update rewrites the display fields of a screening. Capacity is
// deliberately absent from the statement: it is immutable after creation.
func (r *ScreeningRepo) Update(ctx context.Context, id int64, title, posterURL string, startsAt time.Time, genre, duration string, priceCents int) error {
	const op = "postgres.ScreeningRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE screenings
        	SET title = $2, poster_url = $3, starts_at = $4, genre = $5, duration = $6, price_cents = $7
      	 WHERE id = $1`,
		id, title, posterURL, startsAt, genre, duration, priceCents,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a screening together with its claimed seats and tickets.
// Meant to run inside a transaction so a failure leaves all three tables
// untouched.
func (r *ScreeningRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.ScreeningRepo.Delete"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`DELETE FROM tickets WHERE screening_id = $1`, id,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if _, err := db.Exec(ctx,
		`DELETE FROM screening_seats WHERE screening_id = $1`, id,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	tag, err := db.Exec(ctx, `DELETE FROM screenings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
