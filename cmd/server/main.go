package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"skinwatch/internal/config"
	"skinwatch/internal/engine"
	"skinwatch/internal/logger"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	// Config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	log := logger.New(cfg.Log.Level)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config, refusing to start", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := engine.Build(ctx, cfg, log)
	if err != nil {
		log.Error("build engine", "err", err)
		os.Exit(1)
	}
	rt.Start(ctx)

	a := &api{svc: rt.Engine, log: log, timeout: config.Seconds(cfg.Server.RequestTimeoutSec, 10*time.Second) + 5*time.Second}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withRequestID(log, withGzip(recoverPanic(log, limitBody(cfg.Server.MaxBodyBytes, a.routes()))))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.Server.ShutdownTimeoutSec, 5*time.Second))
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := rt.Close(); err != nil {
		log.Warn("close runtime", "err", err)
	}
	log.Info("server stopped")
}
