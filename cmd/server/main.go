// cmd/server is the application entry point. It wires together all
// layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/auth"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/cache"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/database"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/handler"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/service"
)

type serverConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"postgres"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx := context.Background()

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	// ── 1. Storage ────────────────────────────────────────────────────────
	var (
		events service.EventStore
		users  service.UserStore
		reg    service.Coordinator
		ping   func() error
	)
	switch cfg.StorageBackend {
	case "memory":
		// Single-process store for local development and demos.
		store := repository.NewMemoryStore()
		events, users, reg = store, store, store
		log.Info("using in-memory storage")
	case "postgres":
		dbCfg, err := database.ConfigFromEnv()
		if err != nil {
			return fmt.Errorf("database config: %w", err)
		}
		pool, err := database.NewPool(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		events = repository.NewEventRepository(pool)
		users = repository.NewUserRepository(pool)
		reg = repository.NewRegistrationRepository(pool)
		ping = func() error { return pool.Ping(context.Background()) }
		log.Info("connected to postgres", zap.String("database", dbCfg.DBName))
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	// ── 2. Optional Redis read cache ──────────────────────────────────────
	var inval service.Invalidator
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			// Degrade to uncached reads rather than refusing to start.
			log.Warn("redis unreachable, caching disabled", zap.Error(err))
		} else {
			ec := cache.NewEventCache(events, client, cfg.CacheTTL)
			events = ec
			inval = ec
			log.Info("event cache enabled", zap.String("addr", cfg.RedisAddr),
				zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	eventSvc := service.NewEventService(events, users, reg, inval, log)
	userSvc := service.NewUserService(users, tokens, log)
	router := handler.NewRouter(handler.NewEventHandler(eventSvc), handler.NewUserHandler(userSvc), tokens, log, ping)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
