package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"costtracker/internal/backend"
	"costtracker/internal/cli"
	apphttp "costtracker/internal/http"
	applog "costtracker/internal/log"
	"costtracker/internal/session"
	"costtracker/internal/state"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", slog.String(applog.FieldError, err.Error()))
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	res, err := backend.NewFactory(applog.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", slog.String(applog.FieldError, err.Error()))
		os.Exit(1)
	}
	b := res.Backend

	// Restore the last known collections before the first auth event.
	st := state.NewStore()
	b.Mirror.Seed(ctx, st)
	b.Mirror.Attach(st)

	ctrl := session.New(b.Store, b.Auth, st, b.Notifier)

	srv := apphttp.NewServer(":"+cfg.Port, ctrl, apphttp.Options{
		Currency:      cfg.Currency,
		Notifications: b.Recent,
		Checks:        b.Checks,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting costtracker server",
			slog.String("port", cfg.Port),
			slog.String("backend", cfg.DataBackend),
			slog.String("mirror", cfg.MirrorBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	steps := make(map[string]func(context.Context) error, len(res.Cleanup))
	for name, step := range res.Cleanup {
		steps[name] = step
	}
	cli.RunCleanup(logger, cfg.ShutdownTimeout, steps)

	if runErr != nil {
		logger.Error("Server error", slog.String(applog.FieldError, runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
