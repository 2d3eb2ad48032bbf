// Package main is the entry point for the live player auction server.  It
// wires together the auction core and starts the HTTP server alongside the
// WebSocket hub, the background scheduler and the optional result archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/fantaasta/auction/internal/api"
	"github.com/fantaasta/auction/internal/api/middleware"
	"github.com/fantaasta/auction/internal/config"
	"github.com/fantaasta/auction/internal/metrics"
	"github.com/fantaasta/auction/internal/repository"
	"github.com/fantaasta/auction/internal/roster"
	"github.com/fantaasta/auction/internal/scheduler"
	"github.com/fantaasta/auction/internal/service"
	"github.com/fantaasta/auction/internal/ws"
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting auction server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Roster ─────────────────────────────────────────────────────────────
	var (
		rst *roster.Roster
		err error
	)
	if cfg.Roster.Path != "" {
		rst, err = roster.Load(cfg.Roster.Path)
	} else {
		rst, err = roster.Default()
	}
	if err != nil {
		logger.Error("roster load failed", "path", cfg.Roster.Path, "err", err)
		os.Exit(1)
	}
	if !rst.HasTeam(cfg.Auction.AdminTeam) {
		logger.Warn("administrator team is not in the roster; it can still confirm but never bid",
			"admin", cfg.Auction.AdminTeam)
	}
	logger.Info("roster loaded", "teams", len(rst.Teams), "players", len(rst.Players))

	// ── 3. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 4. Auction core ───────────────────────────────────────────────────────
	m := metrics.New()
	auctionSvc := service.NewAuctionService(rst, cfg, logger, service.WithMetrics(m))

	// ── 5. Result archive (optional) ──────────────────────────────────────────
	var (
		db          *sqlx.DB
		stopArchive = func() {}
		archiveDone <-chan struct{}
	)
	if cfg.ArchiveEnabled() {
		db, err = openDB(cfg)
		if err != nil {
			logger.Error("database setup failed", "err", err)
			os.Exit(1)
		}
		if err = runMigrations(db, cfg.DB.MigrationsDir); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")

		archiver := repository.NewResultArchiver(repository.NewResultRepository(db), logger)
		auctionSvc.SetArchiver(archiver)
		stopArchive, archiveDone = startArchive(archiver.Run)
		logger.Info("result archive enabled", "session", archiver.Session())
	} else {
		done := make(chan struct{})
		close(done)
		archiveDone = done
		logger.Info("result archive disabled (DATABASE_DSN not set)")
	}

	// ── 6. WebSocket Hub ──────────────────────────────────────────────────────
	hub := ws.NewHub(cfg.Server.AllowedOrigins, logger, m)
	hub.SetStatusSource(auctionSvc)

	// Wire WS broadcaster into the auction service
	auctionSvc.SetBroadcaster(hub)

	go hub.Run(ctx)
	logger.Info("websocket hub started")

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(auctionSvc, cfg, logger)
	sched.Start(ctx)

	// ── 8. HTTP Router ────────────────────────────────────────────────────────
	throttle := middleware.NewThrottle(cfg.Auction.BidRateLimit)
	go throttle.Run(ctx)

	router := api.SetupRouter(api.RouterDeps{
		AuctionSvc: auctionSvc,
		Hub:        hub,
		Metrics:    m,
		Throttle:   throttle,
		Cfg:        cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 9. Start server ───────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 10. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}
	stopArchive()

	select {
	case <-sched.Done():
	case <-shutdownCtx.Done():
	}
	select {
	case <-archiveDone:
	case <-shutdownCtx.Done():
		logger.Warn("archive did not drain before shutdown deadline")
	}

	if db != nil {
		db.Close()
	}
	logger.Info("server stopped cleanly")
}

// startArchive runs the archive worker on a context of its own rather than
// the signal context: requests still in flight during srv.Shutdown may
// confirm or delete results.  stop ends the worker; done closes once the
// queue has been flushed.
func startArchive(run func(context.Context)) (stop func(), done <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		run(ctx)
		close(finished)
	}()
	return cancel, finished
}

// openDB connects to Postgres and applies the pool settings.
func openDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("openDB: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	return db, nil
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
