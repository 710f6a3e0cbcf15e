package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/geocoder89/certhub/internal/app"
	"github.com/geocoder89/certhub/internal/config"
	"github.com/geocoder89/certhub/internal/db"
	"github.com/geocoder89/certhub/internal/observability"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "certhub-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", observability.Err(err))
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	if err := db.MigrateUp(cfg.DBURL, cfg.MigrationsPath); err != nil {
		log.Error("migrations failed", observability.Err(err))
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", observability.Err(err))
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	application, err := app.New(ctx, cfg, app.Options{
		Log:  log,
		Pool: pool,
		Prom: prom,
	})
	if err != nil {
		log.Error("app init failed", observability.Err(err))
		os.Exit(1)
	}
	defer application.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           application.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// submit fans out to the mail provider
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", observability.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", observability.Err(err))
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
