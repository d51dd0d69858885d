package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/lostfound/internal/api"
	"github.com/erazemk/lostfound/internal/config"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/events"
	"github.com/erazemk/lostfound/internal/store"
	"github.com/erazemk/lostfound/internal/telemetry"
	"github.com/erazemk/lostfound/internal/web"
)

// parseFlags applies command-line overrides on top of cfg.
func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("lostfound", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.AdminEmail, "email", cfg.AdminEmail, "")
	fs.StringVar(&cfg.AdminEmail, "e", cfg.AdminEmail, "")
	fs.StringVar(&cfg.Log.Path, "log", cfg.Log.Path, "")
	fs.StringVar(&cfg.Log.Path, "l", cfg.Log.Path, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: lostfound [flags]

Flags:
  -d, -db <path>          SQLite database path (default: lostfound.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -e, -email <address>    admin email on first run (default: admin@localhost.test)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Every setting can also be given as a LOSTFOUND_* environment variable or in
a .env file in the working directory. Flags take precedence.
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	password, err := bootstrapAdmin(ctx, database, cfg.AdminEmail, cfg.AdminName)
	if err != nil {
		return err
	}
	if password != "" {
		printAdminCredentials(cfg.AdminEmail, password)
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if jwtSecret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer shutdownTracing(context.Background())

	rdb := connectRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		publisher = &events.AMQPPublisher{URL: cfg.AMQPURL, Queue: cfg.AMQPQueue}
		slog.Info("publishing claim events", "queue", cfg.AMQPQueue)
	}

	apiRouter := api.NewRouter(database, jwtSecret, api.Options{
		TokenTTL:  cfg.TokenTTL,
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Events:    publisher,
	})
	webRouter, err := web.NewRouter(database, jwtSecret, web.Options{
		TokenTTL: cfg.TokenTTL,
		Events:   publisher,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// connectRedis returns a client for the configured Redis server, or nil when
// none is configured or it cannot be reached. Rate limiting is skipped then.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable, rate limiting disabled", "addr", cfg.Addr, "error", err)
		rdb.Close()
		return nil
	}
	slog.Info("redis connected", "addr", cfg.Addr)
	return rdb
}
