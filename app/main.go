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

	"github.com/lysyi3m/media-monitor/app/api"
	"github.com/lysyi3m/media-monitor/app/cfg"
	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
	"github.com/lysyi3m/media-monitor/app/monitor"
	"github.com/lysyi3m/media-monitor/app/paywall"
	"github.com/lysyi3m/media-monitor/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Media Monitor failed", "command", appCfg.Command, "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Media Monitor", "version", appCfg.Version, "command", appCfg.Command)

	monitorConfig, err := config.NewLoader(appCfg.ConfigFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load monitor configuration: %w", err)
	}
	slog.Info("Monitor configuration loaded",
		"file", appCfg.ConfigFile,
		"sources", len(monitorConfig.Sources),
		"topics", len(monitorConfig.Topics),
		"bypass_services", len(monitorConfig.Bypass))

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Connected to database", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	engine, err := monitor.NewEngine(monitorConfig, database.NewArticleRepository(db), &http.Client{}, monitor.Options{
		UserAgent: appCfg.UserAgent,
		OnTransition: func(t paywall.Transition) {
			slog.Debug("Paywall resolver transition", "url", t.URL, "state", string(t.State), "service", t.Service)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch appCfg.Command {
	case cfg.CommandScan:
		scan := tasks.NewScanTask(engine, appCfg.ScanHours)
		if err := scan.Execute(ctx); err != nil {
			return err
		}
		if next := scan.FollowUp(); next != nil {
			return next.Execute(ctx)
		}
		return nil
	case cfg.CommandReport:
		return tasks.NewReportTask(engine, appCfg.ReportDir).Execute(ctx)
	case cfg.CommandPrune:
		return tasks.NewPruneTask(engine, appCfg.Retention()).Execute(ctx)
	default:
		return serve(ctx, appCfg, engine)
	}
}

func serve(ctx context.Context, appCfg *cfg.Cfg, engine *monitor.Engine) error {
	scheduler, err := tasks.NewScheduler(engine, tasks.SchedulerOptions{
		WorkerCount: appCfg.WorkerCount,
		ScanHours:   appCfg.ScanHours,
		Retention:   appCfg.Retention(),
		ReportDir:   appCfg.ReportDir,
		Schedule: tasks.Schedule{
			Scan:   appCfg.ScanSchedule,
			Prune:  appCfg.PruneSchedule,
			Report: appCfg.ReportSchedule,
		},
		ScanOnStart: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount,
		"scan_schedule", appCfg.ScanSchedule, "prune_schedule", appCfg.PruneSchedule, "report_schedule", appCfg.ReportSchedule)
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(api.NewHandler(engine, appCfg.ScanHours, appCfg.Version), appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErrChan:
		return err
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return nil
}
