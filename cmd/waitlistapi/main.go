// Package main wires together the waitlist API binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/LouisDeconinck/waitlist-template2/internal/api"
	"github.com/LouisDeconinck/waitlist-template2/internal/clock/system"
	"github.com/LouisDeconinck/waitlist-template2/internal/config"
	"github.com/LouisDeconinck/waitlist-template2/internal/hash/sha256"
	"github.com/LouisDeconinck/waitlist-template2/internal/logging"
	"github.com/LouisDeconinck/waitlist-template2/internal/storage/memory"
	"github.com/LouisDeconinck/waitlist-template2/internal/storage/postgres"
	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	migrate := flag.Bool("migrate", false, "Run pending database migrations before serving")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrate {
		if cfg.DB.DSN == "" {
			logger.Fatal("migrations requested but db.dsn is empty")
		}
		if err := runMigrations(ctx, cfg.DB.DSN, cfg.DB.MigrationsDir); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied", zap.String("dir", cfg.DB.MigrationsDir))
	}

	var store waitlist.EntryStore
	if cfg.DB.DSN != "" {
		pgStore, err := postgres.NewEntryStore(ctx, postgres.EntryStoreConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.ConnLifetime(),
		}, logger.Named("postgres"))
		if err != nil {
			logger.Fatal("entry store init failed", zap.Error(err))
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		logger.Warn("db.dsn is empty, using in-memory store")
		store = memory.NewEntryStore()
	}

	assets := http.FileServer(http.Dir(cfg.Static.Dir))
	server := api.NewServer(store, system.New(), sha256.New(), cfg, logger.Named("api"), assets)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func runMigrations(ctx context.Context, dsn, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()
	return goose.UpContext(ctx, db, dir)
}
