// Package main boots the Flight Pricing Engine HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/flight-pricing-engine/internal/cache"
	"github.com/fairyhunter13/flight-pricing-engine/internal/config"
	"github.com/fairyhunter13/flight-pricing-engine/internal/demand"
	httpapi "github.com/fairyhunter13/flight-pricing-engine/internal/http"
	"github.com/fairyhunter13/flight-pricing-engine/internal/obs"
	"github.com/fairyhunter13/flight-pricing-engine/internal/service"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting",
		"cache_ttl_sec", cfg.CacheTTL.Seconds(),
		"demand_update_interval_sec", cfg.DemandUpdateInterval.Seconds(),
	)

	metrics := obs.NewMetrics()
	reg := demand.NewRegistry(demand.WithSeedRange(cfg.DemandSeedMin, cfg.DemandSeedMax))
	svc := service.New(reg, cache.New(cfg.CacheTTL), metrics)
	drifter := demand.NewDrifter(reg, cfg.DemandUpdateInterval, cfg.DemandDriftMaxDelta, metrics)
	drifter.Start()

	app := httpapi.NewApp(cfg, svc, metrics)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		obs.Logger.Info("shutdown_signal")
		app.StartShutdown()

		ctxStop, cancelStop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelStop()
		if err := drifter.Stop(ctxStop); err != nil {
			obs.Logger.Warn("shutdown_drift_timeout", "error", err)
		}
		if err := srv.Shutdown(ctxStop); err != nil {
			obs.Logger.Error("http_shutdown_error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		obs.Logger.Error("http_server_error", "error", err)
		os.Exit(1)
	}
	obs.Logger.Info("service_stopped")
}
