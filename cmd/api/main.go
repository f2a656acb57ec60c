package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/splax/teamboard/internal/app/migrate"
	"github.com/splax/teamboard/internal/events"
	httpx "github.com/splax/teamboard/internal/http"
	"github.com/splax/teamboard/internal/repository"
	"github.com/splax/teamboard/internal/repository/memory"
	"github.com/splax/teamboard/internal/repository/postgres"
	"github.com/splax/teamboard/internal/service/access"
	"github.com/splax/teamboard/internal/service/auth"
	"github.com/splax/teamboard/internal/service/inventory"
	"github.com/splax/teamboard/internal/service/project"
	"github.com/splax/teamboard/internal/service/stats"
	"github.com/splax/teamboard/internal/service/task"
	"github.com/splax/teamboard/internal/service/team"
	"github.com/splax/teamboard/pkg/config"
	"github.com/splax/teamboard/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api server failed", "error", err)
		os.Exit(1)
	}
	log.Info("api server stopped")
}

func run(ctx context.Context, cfg config.APIConfig, log *slog.Logger) error {
	store, dbHealth, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := events.NewBus()
	defer bus.Close()

	var (
		publisher events.Publisher = bus
		relay     *events.RedisRelay
		limiter   httpx.RateLimiter
	)
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable; change feed and rate limits stay local", "addr", addr, "error", err)
		} else {
			relay = events.NewRedisRelay(bus, client, cfg.ChangeChannel, log)
			publisher = relay
			limiter = httpx.NewRedisRateLimiter(client, log)
		}
	}

	resolver := access.New(store, store)
	services := httpx.Services{
		Auth:      auth.New(store, log, cfg),
		Teams:     team.New(store, store, resolver, log),
		Projects:  project.New(store, store, resolver, stats.New(store), publisher, log),
		Tasks:     task.New(store, resolver, publisher, log, cfg),
		Inventory: inventory.New(store, resolver, publisher, log, cfg),
	}
	router := httpx.NewRouter(log, services, bus, limiter, cfg, dbHealth)
	defer router.Close()

	srv := newServer(cfg.Addr, router, bus)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment, "store", cfg.StoreDriver, "relay", relay != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		return nil
	})
	return g.Wait()
}

// newServer builds the HTTP server. Shutdown closes the change bus so open
// SSE and websocket streams end instead of holding the drain.
func newServer(addr string, handler http.Handler, bus *events.Bus) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv.RegisterOnShutdown(bus.Close)
	return srv
}

// openStore returns the configured backend, a health check for /healthz and
// a release func.
func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.Store, func(context.Context) error, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil, func() {}, nil
	case config.StoreDriverPostgres:
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("database ping: %w", err)
	}
	if cfg.AutoMigrate {
		runner, err := migrate.New(pool, cfg.MigrationsDir, log)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("configure migrations: %w", err)
		}
		err = runner.Ensure(ctx)
		_ = runner.Close()
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return postgres.New(pool), pool.Ping, pool.Close, nil
}
