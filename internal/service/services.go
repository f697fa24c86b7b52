package service

import (
	"log/slog"

	"github.com/movieflex/movieflex/internal/notify"
	postgres "github.com/movieflex/movieflex/internal/repository/postgres"
	redis "github.com/movieflex/movieflex/internal/repository/redis"
	"github.com/movieflex/movieflex/internal/service/auth"
	"github.com/movieflex/movieflex/internal/service/booking"
	"github.com/movieflex/movieflex/internal/service/catalog"
	"github.com/movieflex/movieflex/internal/service/tickets"
)

type Services struct {
	Booking *booking.Service
	Tickets *tickets.Service
	Catalog *catalog.Service
	Auth    *auth.Service
}

type Config struct {
	Catalog catalog.Config
	Auth    auth.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.ScreeningsPubSub,
	limiter *redis.SlidingWindowLimiter,
	dispatcher notify.Dispatcher,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Booking: booking.New(store.Screenings(), store.Tickets(), cache, pubsub, limiter, logger),
		Tickets: tickets.New(store.Tickets(), store.Users(), store.Screenings(), dispatcher, logger),
		Catalog: catalog.New(store, cache, pubsub, cfg.Catalog),
		Auth:    auth.New(store.Users(), cfg.Auth),
	}
}
