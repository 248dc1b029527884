package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/corpgame/econ-engine/internal/api"
	"github.com/corpgame/econ-engine/internal/app"
	"github.com/corpgame/econ-engine/internal/config"
	"github.com/corpgame/econ-engine/internal/engine"
	"github.com/corpgame/econ-engine/internal/scheduler"
	"github.com/corpgame/econ-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run(ctx)

	// --- Store, catalog and engine ---
	a, err := app.Open(ctx, cfg, app.Options{Broadcaster: hub})
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	eng := a.Engine

	// --- Scheduled jobs ---
	sched := scheduler.New(ctx)
	refresh := scheduler.JobFunc("price-refresh", func(ctx context.Context) error {
		_, err := eng.RefreshSnapshot(ctx)
		return err
	})
	if err := sched.RunNow(refresh); err != nil {
		slog.Warn("initial price snapshot failed", "err", err)
	}
	tick := scheduler.JobFunc("valuation-tick", func(ctx context.Context) error {
		report, err := eng.RunTick(ctx, engine.TickOptions{Variation: true})
		if err != nil {
			return err
		}
		slog.Info("valuation tick",
			"valued", report.Valued(),
			"skipped", len(report.Skipped),
			"duration", report.Duration,
		)
		return nil
	})
	if err := sched.AddJob(cfg.PriceRefreshSchedule, refresh); err != nil {
		slog.Error("invalid price refresh schedule", "err", err)
		os.Exit(1)
	}
	if err := sched.AddJob(cfg.TickSchedule, tick); err != nil {
		slog.Error("invalid tick schedule", "err", err)
		os.Exit(1)
	}
	sched.Start()

	// --- HTTP server ---
	var history store.History = a.Store
	if a.Archive != nil {
		history = a.Archive
	}
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      api.NewServer(eng, history, hub).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("econ-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown. A tick in flight stops writing once ctx is done;
	// sched.Stop waits for it to return.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("shutting down econ-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	sched.Stop()
	fmt.Println("econ-engine stopped")
}
