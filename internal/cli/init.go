// Package cli provides common CLI initialization utilities shared by
// cmd/costtracker and cmd/costtracker-notify.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"costtracker/internal/config"
	applog "costtracker/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the handler for format: text, json or tint.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	lvl := ParseLevel(level)
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	case "tint":
		return tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
}

// SetupLogger initializes structured logging for component and installs it
// as the default logger.
func SetupLogger(component, level, format string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     ParseLevel(level),
		Component: component,
		Handler:   NewHandler(os.Stdout, level, format),
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, sets up logging from it and
// validates it. Exits the process on validation failure.
func LoadAndValidateConfig(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(component, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", slog.String(applog.FieldError, err.Error()))
		os.Exit(1)
	}
	return cfg, logger
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// RunCleanup runs each step with a shared deadline and logs failures.
func RunCleanup(logger *applog.Logger, timeout time.Duration, steps map[string]func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for name, step := range steps {
		if err := step(ctx); err != nil {
			logger.Warn("Cleanup step failed", slog.String(applog.FieldKey, name), slog.String(applog.FieldError, err.Error()))
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
		return
	}
	logger.Info("Shutdown complete")
}
