package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a user and returns its ID.
//
// Returns:
//   - error: repository.ErrEmailTaken if the email is already registered.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string, isAdmin bool) (int64, error) {
	const op = "postgres.UserRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO users(name, email, password_hash, is_admin)
       	 VALUES ($1, $2, $3, $4)
     	 RETURNING id`,
		name, email, passwordHash, isAdmin,
	).Scan(&id); err != nil {
		err = translateDBErr(err)
		if errors.Is(err, repository.ErrConflict) {
			err = repository.ErrEmailTaken
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByEmail"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, is_admin, created_at
       	 FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &u, nil
}

// Get retrieves a user by ID.
func (r *UserRepo) Get(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.Get"

	db := r.handle()

	var u domain.User
	err := db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, is_admin, created_at
       	 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &u, nil
}
