package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/darkden-lab/tableside/internal/auth"
	"github.com/darkden-lab/tableside/internal/cache"
	"github.com/darkden-lab/tableside/internal/config"
	"github.com/darkden-lab/tableside/internal/db"
	"github.com/darkden-lab/tableside/internal/eventbus"
	"github.com/darkden-lab/tableside/internal/floor"
	logx "github.com/darkden-lab/tableside/internal/log"
	mw "github.com/darkden-lab/tableside/internal/middleware"
	"github.com/darkden-lab/tableside/internal/waiter"
	"github.com/darkden-lab/tableside/internal/ws"
)

func main() {
	cfg := config.Load()
	logx.Configure(logx.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg); err != nil {
		logger := logx.WithComponent("server")
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := logx.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer database.Close()
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	// Redis (table session cache, optional event bus)
	var redisClient *redis.Client
	var store cache.Store
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient)
		logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("connected to Redis")
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, table sessions are cached in memory")
		store = cache.NewMemoryStore()
	}

	// Event bus
	bus, err := eventbus.New(cfg, redisClient)
	if err != nil {
		return fmt.Errorf("event bus setup failed: %w", err)
	}
	defer bus.Close() //nolint:errcheck // best-effort cleanup on shutdown

	// JWT & Auth
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	authService := auth.NewAuthService(auth.NewStaffStore(database.Pool), jwtService)
	authHandlers := auth.NewHandlers(authService)

	// Floor
	floorStore := floor.NewStore(database.Pool)
	floorHandlers := floor.NewHandlers(floor.NewPublisher(bus))

	// Waiter namespace
	hub := ws.NewHub()
	relay := waiter.NewRelay(bus, floorStore, store)
	waiterHandler := waiter.NewHandler(ctx, relay, auth.NewGate(jwtService, auth.RoleWaiter), hub, ws.NewUpgrader(cfg.AllowedOrigins))

	// Router
	r := mux.NewRouter()
	r.Use(mw.RateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))

	// Health and metrics (no auth)
	r.Handle("/healthz", newHealthHandler(hub, database, store)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Auth routes (no auth middleware, global rate limit applies)
	authHandlers.RegisterRoutes(r)

	// WebSocket (auth handled inside handler)
	waiterHandler.RegisterRoutes(r)

	// Protected routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(mw.AuthMiddleware(jwtService))
	authHandlers.RegisterProtectedRoutes(protected)
	floorHandlers.RegisterRoutes(protected)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        mw.CORS(cfg.AllowedOrigins)(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	logger.Info().Str("addr", srv.Addr).Str("event_bus", cfg.EventBusDriver).Msg("starting server")

	// serve returns only after every waiter session has released its
	// subscriptions, so the deferred bus, Redis and database closes run last.
	if err := serve(ctx, srv, ln, waiterHandler); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

const shutdownTimeout = 10 * time.Second

// serve runs srv on ln until ctx ends, then stops accepting requests and
// drains the waiter sessions.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, waiters *waiter.Handler) error {
	logger := logx.WithComponent("server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		// Hijacked WebSocket connections are not tracked by Shutdown.
		if derr := waiters.Shutdown(shutdownCtx); derr != nil {
			err = errors.Join(err, derr)
		}
		return err
	})

	return g.Wait()
}
