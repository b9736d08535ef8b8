package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/app"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/config"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/db"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/handlers"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/market"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := config.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := db.Open(ctx, cfg.Store)
	if err != nil {
		logger.Error("failed to open store", slog.String("store", cfg.Store), slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	tracker := app.New(store, market.New(cfg.Market.URL, cfg.Market.Timeout), app.Options{
		Interval: cfg.Market.PollInterval,
		Logger:   logger,
	})
	tracker.Restore(ctx)

	proc := handlers.NewIntentProcessor(logger.With(slog.String("component", "intents")))
	proc.Start()
	defer proc.Stop()

	// Show prices right away; the poller only fires after the first interval.
	go func() {
		if _, err := tracker.Prices.RefreshOnce(ctx); err != nil {
			logger.Warn("initial refresh failed", slog.Any("error", err))
		}
	}()
	tracker.Prices.StartPolling(ctx)
	defer tracker.Prices.StopPolling()

	gin.SetMode(cfg.GinMode)
	router := handlers.NewRouter(handlers.NewAPI(tracker, proc, logger.With(slog.String("component", "http"))))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("server starting", slog.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
}
