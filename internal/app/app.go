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

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/meetly/internal/checkout"
	"github.com/kirinyoku/meetly/internal/config"
	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
	"github.com/kirinyoku/meetly/internal/monitoring"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/postgres"
	"github.com/kirinyoku/meetly/internal/redis"
	"github.com/kirinyoku/meetly/internal/remote"
	postgresrepo "github.com/kirinyoku/meetly/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/meetly/internal/repository/redis"
	"github.com/kirinyoku/meetly/internal/session"
	httpgin "github.com/kirinyoku/meetly/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	checkout   *checkout.Publisher
	pubsub     *redisrepo.EntityPubSub
	sessions   *session.Manager
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Repositories: postgres is the remote store, redis a shared read-through
	// layer in front of it.
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	ttls := redisrepo.TTLs{List: cfg.Redis.ListTTL, Detail: cfg.Redis.DetailTTL}
	retry := remote.RetryPolicy{MaxAttempts: cfg.Remote.MaxAttempts, Delay: cfg.Remote.RetryDelay}

	remotes := session.Remotes{
		Events: redisrepo.NewCachedRemote[domain.Event](domain.KindEvent,
			remote.WithRetry[domain.Event](store.Events(), retry), cache, ttls, logger),
		Meetups: redisrepo.NewCachedRemote[domain.Meetup](domain.KindMeetup,
			remote.WithRetry[domain.Meetup](store.Meetups(), retry), cache, ttls, logger),
		Bookings: redisrepo.NewCachedRemote[domain.Booking](domain.KindBooking,
			remote.WithRetry[domain.Booking](store.Bookings(), retry), cache, ttls, logger),
		Users: redisrepo.NewCachedRemote[domain.User](domain.KindUser,
			remote.WithRetry[domain.User](store.Users(), retry), cache, ttls, logger),
		Favorites: remote.FavoritesWithRetry(store.Favorites(), retry),
	}

	pubsub := redisrepo.NewEntityPubSub(rdb)
	limiter := redisrepo.NewFixedWindowLimiter(rdb, "favorites", cfg.RateLimit.ToggleLimit, cfg.RateLimit.ToggleWindow)
	idem := redisrepo.NewIdempotency(rdb, cfg.Idempotency.TTL, cfg.Idempotency.LockTTL)

	// Notices land in the per-user buffer and the log, and on PubNub when
	// keys are configured.
	notices := notify.NewBuffer(cfg.Notify.BufferSize)
	notifiers := notify.Multi{notify.NewLog(logger)}
	if cfg.Notify.PubNubEnabled {
		notifiers = append(notifiers, notify.NewPubNub(notify.PubNubConfig{
			PublishKey:   cfg.Notify.PubNubPublish,
			SubscribeKey: cfg.Notify.PubNubSubscribe,
			SecretKey:    cfg.Notify.PubNubSecret,
		}, logger))
	}

	deps := session.Deps{
		Remotes:   remotes,
		Publisher: pubsub,
		Notices:   notices,
		Notifier:  notifiers,
		Monitor:   monitoring.NewMonitor(),
		Cache: entitycache.Options{
			ListStaleTime:   cfg.Cache.ListStaleTime,
			DetailStaleTime: cfg.Cache.DetailStaleTime,
		},
		Logger: logger,
	}

	var publisher *checkout.Publisher
	if cfg.Checkout.Enabled {
		publisher, err = checkout.NewPublisher(checkout.Config{URL: cfg.Checkout.AMQPURL, Queue: cfg.Checkout.Queue}, logger)
		if err != nil {
			_ = rdb.Close()
			pgxPool.Close()
			return nil, fmt.Errorf("failed to initialize checkout publisher: %w", err)
		}
		deps.Checkout = publisher
	}

	sessions := session.NewManager(deps)

	router := httpgin.NewRouter(httpgin.Deps{
		Sessions: sessions,
		Notices:  notices,
		Limiter:  limiter,
		Idem:     idem,
		Logger:   logger,
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		pool:     pgxPool,
		rdb:      rdb,
		checkout: publisher,
		pubsub:   pubsub,
		sessions: sessions,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Change messages from every process invalidate the open sessions.
	g.Go(func() error {
		a.logger.Info("following entity changes", "channel", redisrepo.ChannelEntitiesChanged())
		if err := a.sessions.Run(gCtx, a.pubsub); err != nil {
			return fmt.Errorf("entity change subscription: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	a.sessions.CloseAll()

	if a.checkout != nil {
		if err := a.checkout.Close(); err != nil {
			a.logger.Warn("failed to close checkout publisher", "error", err)
		}
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("failed to close redis", "error", err)
	}
	a.pool.Close()
}
