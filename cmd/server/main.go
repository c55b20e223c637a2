package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfoliotracker/internal/api"
	"portfoliotracker/internal/app"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/logging"
)

func main() {
	boot := logging.NewWithOutput("info", os.Stdout)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}

	log := logging.NewWithOutput(cfg.Server.LogLevel, os.Stdout)
	if os.Getenv("LOG_FORMAT") == "console" {
		log = logging.New(cfg.Server.LogLevel)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.StartSweepers(ctx)
	go func() {
		pctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout()*2)
		defer cancel()
		a.FX.Preload(pctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.New(a).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// batch quotes are paced between symbols
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
