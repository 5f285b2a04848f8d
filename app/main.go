package main

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

	"github.com/joho/godotenv"
	"github.com/lysyi3m/trip-cards/app/api"
	"github.com/lysyi3m/trip-cards/app/booking"
	"github.com/lysyi3m/trip-cards/app/cfg"
	"github.com/lysyi3m/trip-cards/app/database"
	"github.com/lysyi3m/trip-cards/app/host"
	"github.com/lysyi3m/trip-cards/app/tasks"
	"github.com/lysyi3m/trip-cards/app/widget"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Warning: failed to read .env: %v\n", err)
	}

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Trip Cards server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Trip Cards server", "version", appCfg.Version)

	slog.Info("Opening database", "path", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	profiles := host.NewProfileCache(appCfg.HostsDir)
	if err := profiles.Run(); err != nil {
		return fmt.Errorf("failed to load host profiles: %w", err)
	}
	slog.Info("Host profiles loaded", "count", profiles.GetProfileCount(), "dir", appCfg.HostsDir)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := widget.NewMetrics(reg)

	backend := booking.NewClient(appCfg.BackendURL, appCfg.BackendToken, appCfg.UserAgent, nil)
	events := host.NewBroadcaster(16)

	confirmations := database.NewConfirmationRepository(db)
	commitments := database.NewCommitmentRepository(db)
	gate := widget.NewConfirmationGate(backend, confirmations, appCfg.IntentTTLDuration(), metrics)

	factory := &widget.Factory{
		OfferExpiry: appCfg.OfferExpiry,
		Gate:        gate,
		Metrics:     metrics,
		Capabilities: func(name string) (widget.Capabilities, error) {
			p, err := profiles.GetProfile(name)
			if err != nil {
				return widget.Capabilities{}, err
			}
			if p.Settings.Disabled {
				return widget.Capabilities{}, fmt.Errorf("host %s is disabled", name)
			}
			return host.Capabilities(p, events, appCfg.UserAgent), nil
		},
	}

	registry, err := widget.NewRegistry(appCfg.SessionCapacity, appCfg.SessionTTLDuration(), factory)
	if err != nil {
		return err
	}
	defer registry.Shutdown()

	scheduler := tasks.NewScheduler(registry, backend, commitments,
		appCfg.SchedulerIntervalDuration(), appCfg.WorkerCount)
	factory.OnCommit = scheduler.OnCommit

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(registry, backend, confirmations, commitments, events, profiles)
	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     api.NewServer(handler, appCfg.APIAccessKey, reg),
		ReadTimeout: 30 * time.Second,
		// no WriteTimeout: event streams stay open
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		slog.Info("HTTP server stopped")
		return nil
	})

	err = g.Wait()
	slog.Info("Trip Cards server shutdown complete")
	return err
}
