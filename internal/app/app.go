package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/movieflex/movieflex/internal/config"
	"github.com/movieflex/movieflex/internal/notify"
	"github.com/movieflex/movieflex/internal/postgres"
	"github.com/movieflex/movieflex/internal/redis"
	postgresrepo "github.com/movieflex/movieflex/internal/repository/postgres"
	redisrepo "github.com/movieflex/movieflex/internal/repository/redis"
	"github.com/movieflex/movieflex/internal/service"
	"github.com/movieflex/movieflex/internal/service/auth"
	httpgin "github.com/movieflex/movieflex/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	dispatcher *notify.AMQPPublisher
	pubsub     *redisrepo.ScreeningsPubSub
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: cfg.PostgresDSN()})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewScreeningsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "book", cfg.RateLimit.Limit, cfg.RateLimit.Window)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Paid-ticket notifications go out through RabbitMQ; the notifier
	// binary consumes the queue and sends the emails.
	dispatcher := notify.NewAMQPPublisher(cfg.AMQP.URL)

	// Initialize services
	services := service.NewServices(store, cache, pubsub, limiter, dispatcher, logger, service.Config{
		Auth: auth.Config{
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  cfg.Auth.TokenTTL,
			AdminCode: cfg.Auth.AdminCode,
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		dispatcher: dispatcher,
		pubsub:     pubsub,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Surface cross-instance screening changes in the log. Each instance
	// publishes on booking and admin writes; subscribing here gives one
	// place to watch churn across the fleet.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(_ context.Context, screeningID int64) {
			a.logger.Debug("screening changed", "screening_id", screeningID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("screenings subscription: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.dispatcher.Close(); err != nil {
			a.logger.Warn("failed to close dispatcher", "error", err)
		}
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
