package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
	postgresrepo "github.com/movieflex/movieflex/internal/repository/postgres"
	redisrepo "github.com/movieflex/movieflex/internal/repository/redis"
	"github.com/movieflex/movieflex/internal/uow"
)

type Config struct {
	SummaryTTL time.Duration
	ListTTL    time.Duration
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.ScreeningsPubSub
	uow    *uow.UoW
	cfg    Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisrepo.ScreeningsPubSub, cfg Config) *Service {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 15 * time.Second
	}

	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 60 * time.Second
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
		cfg:    cfg,
	}
}

// GetScreening retrieves a screening with its claimed seats, through a
// short-TTL cache. The claimed-seat view is advisory for clients drawing a
// seat picker; the booking service's conditional claim is authoritative.
//
// Returns:
//   - *domain.Screening: the screening when found.
//   - error: catalog.ErrScreeningNotFound if the screening is not found.
func (s *Service) GetScreening(ctx context.Context, id int64) (*domain.Screening, error) {
	const op = "service.catalog.GetScreening"

	load := func(ctx context.Context) (domain.Screening, error) {
		scr, err := s.store.Screenings().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Screening{}, ErrScreeningNotFound
			}

			return domain.Screening{}, err
		}

		return *scr, nil
	}

	if s.cache == nil {
		scr, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &scr, nil
	}

	scr, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyScreeningSummary(id),
		s.cfg.SummaryTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &scr, nil
}

// ListScreenings lists screenings ordered by start time. The default page
// is served through the cache; paginated requests go straight to the store.
func (s *Service) ListScreenings(ctx context.Context, limit, offset int) ([]domain.Screening, error) {
	const op = "service.catalog.ListScreenings"

	if limit <= 0 || limit > 200 {
		limit = 100
	}

	load := func(ctx context.Context) ([]domain.Screening, error) {
		return s.store.Screenings().List(ctx, limit, offset)
	}

	if s.cache == nil || offset != 0 || limit != 100 {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return out, nil
	}

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyScreeningList(),
		s.cfg.ListTTL,
		load,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CreateScreening creates a screening record. Capacity is fixed for the
// lifetime of the screening.
//
// Returns:
//   - int64: the created screening ID.
//   - error: catalog.ErrInvalidCapacity if capacity is not positive.
func (s *Service) CreateScreening(ctx context.Context, scr *domain.Screening) (int64, error) {
	const op = "service.catalog.CreateScreening"

	if scr.Capacity <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidCapacity)
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		id, err = s.store.Screenings().With(tx).Create(ctx, scr)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.Del(ctx, redisrepo.KeyScreeningList())
			}
		})
		return nil
	})

	return id, err
}

// UpdateScreening rewrites a screening's display fields. Capacity is not
// updatable.
func (s *Service) UpdateScreening(ctx context.Context, id int64, title, posterURL string, startsAt time.Time, genre, duration string, priceCents int) error {
	const op = "service.catalog.UpdateScreening"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Screenings().With(tx).Update(ctx, id, title, posterURL, startsAt, genre, duration, priceCents); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrScreeningNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.invalidate(ctx, id)
		})
		return nil
	})

	return err
}

// DeleteScreening removes a screening and its claimed seats in one
// transaction.
func (s *Service) DeleteScreening(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteScreening"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Screenings().With(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrScreeningNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.invalidate(ctx, id)
		})
		return nil
	})

	return err
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateScreening(ctx, id)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishScreeningChanged(ctx, id)
	}
}
