package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/attune/internal/catalog"
	"github.com/felixgeelhaar/attune/internal/config"
	"github.com/felixgeelhaar/attune/internal/daemon"
	"github.com/felixgeelhaar/attune/internal/dispatch"
	"github.com/felixgeelhaar/attune/internal/engine"
	"github.com/felixgeelhaar/attune/internal/storage/postgres"
	"github.com/felixgeelhaar/attune/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Indicator catalog: built-in set unless an override file is configured.
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		slog.Info("loaded catalog override", "path", cfg.CatalogPath, "indicators", cat.Len())
	}

	stores, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	dispatcher, closeDispatch, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}
	defer closeDispatch()

	eng := engine.NewService(engine.Config{
		Catalog:     cat,
		Profiles:    stores.profiles,
		Assessments: stores.assessments,
		Plans:       stores.plans,
		Alerts:      stores.alerts,
		Dispatcher:  dispatcher,
	})

	// Redelivery loop: alerts recorded but not yet delivered are retried
	// until a consumer takes them.
	go redeliverLoop(ctx, eng, cfg)

	server := daemon.NewServer(daemon.ServerConfig{
		Bind:   "0.0.0.0",
		Port:   cfg.Port,
		Engine: eng,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

type stores struct {
	profiles    engine.ProfileStore
	assessments engine.AssessmentStore
	plans       engine.PlanStore
	alerts      engine.AlertStore
}

// openStores opens the configured database, applies migrations, and wires
// the store implementations.
func openStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		slog.Info("using postgres storage")
		return &stores{
			profiles:    postgres.NewProfileStore(pool),
			assessments: postgres.NewAssessmentStore(pool),
			plans:       postgres.NewPlanStore(pool),
			alerts:      postgres.NewAlertStore(pool),
		}, pool.Close, nil

	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		slog.Info("using sqlite storage", "path", cfg.SQLitePath)
		return &stores{
			profiles:    sqlite.NewProfileStore(db),
			assessments: sqlite.NewAssessmentStore(db),
			plans:       sqlite.NewPlanStore(db),
			alerts:      sqlite.NewAlertStore(db),
		}, func() { db.Close() }, nil
	}
}

// buildDispatcher connects to RabbitMQ when configured, otherwise falls
// back to the log-only dispatcher.
func buildDispatcher(cfg *config.Config) (engine.Dispatcher, func(), error) {
	if cfg.RabbitMQURL == "" {
		slog.Info("no broker configured, alerts will be logged only")
		return dispatch.NewLogDispatcher(nil), func() {}, nil
	}

	conn, err := dispatch.NewConnection(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	dispatcher := dispatch.NewResilientDispatcher(
		dispatch.NewPublisher(conn),
		dispatch.ResilientConfig{MaxAttempts: cfg.DispatchMaxAttempts},
	)
	return dispatcher, func() { conn.Close() }, nil
}

// redeliverLoop periodically retries undelivered alerts.
func redeliverLoop(ctx context.Context, eng *engine.Service, cfg *config.Config) {
	interval := time.Duration(cfg.RedeliverIntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := eng.RedeliverPending(ctx, cfg.RedeliverBatch); err != nil {
				slog.Warn("redelivery pass failed", "error", err)
			}
		}
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
