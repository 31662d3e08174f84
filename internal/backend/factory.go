package backend

import (
	"context"
	"fmt"
	"log/slog"

	"costtracker/internal/amqp"
	applog "costtracker/internal/log"
	"costtracker/internal/mirror"
	"costtracker/internal/notify"
	"costtracker/internal/remote"
	"costtracker/internal/remote/firebase"
	"costtracker/internal/remote/memory"
	"costtracker/internal/storage"
	"costtracker/internal/storage/rediskv"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.WithComponent(applog.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// remoteBackend is what both remote implementations provide.
type remoteBackend interface {
	remote.Store
	remote.Authenticator
}

// mirrorKV is a mirror store that can also answer readiness probes.
type mirrorKV interface {
	mirror.KV
	Ping(ctx context.Context) error
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	result := &BackendResult{
		Backend: Backend{Checks: make(map[string]func(context.Context) error)},
		Cleanup: make(map[string]CleanupFunc),
	}

	rb, err := f.createRemote(ctx, config, result)
	if err != nil {
		return nil, err
	}
	result.Backend.Store = rb
	result.Backend.Auth = rb

	kv, err := f.createMirrorKV(ctx, config)
	if err != nil {
		f.closeAll(ctx, result)
		return nil, err
	}
	result.Backend.Mirror = mirror.New(kv)
	result.Backend.Checks["mirror"] = kv.Ping
	result.Cleanup["mirror"] = func(context.Context) error { return result.Backend.Mirror.Close() }

	result.Backend.Recent = notify.NewRecorder(config.RecentNotifications)
	notifiers := notify.Multi{notify.NewLog(), result.Backend.Recent}
	if client := f.createAMQP(config); client != nil {
		notifiers = append(notifiers, client)
		result.Cleanup["amqp"] = func(context.Context) error { return client.Close() }
	}
	result.Backend.Notifier = notifiers

	return result, nil
}

func (f *DefaultFactory) createRemote(ctx context.Context, config Config, result *BackendResult) (remoteBackend, error) {
	switch config.Type {
	case FirebaseBackend:
		fb, err := firebase.New(ctx, firebase.Config{
			ProjectID:       config.FirebaseProjectID,
			APIKey:          config.FirebaseAPIKey,
			CredentialsFile: config.FirebaseCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase backend: %w", err)
		}
		result.Cleanup["firebase"] = func(context.Context) error { return fb.Close() }
		f.logger.Info("Initialized firebase backend", slog.String("project_id", config.FirebaseProjectID))
		return fb, nil
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Initialized memory backend", slog.String("data_directory", dataDir))
		return memory.NewFromFiles(dataDir), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMirrorKV(ctx context.Context, config Config) (mirrorKV, error) {
	switch config.Mirror {
	case SQLiteMirror:
		kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite mirror: %w", err)
		}
		f.logger.Info("Initialized SQLite mirror", slog.String("db_path", config.SQLiteDBPath))
		return kv, nil
	case RedisMirror:
		kv, err := rediskv.New(ctx, config.RedisURL, config.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis mirror: %w", err)
		}
		f.logger.Info("Initialized Redis mirror", slog.String("prefix", config.RedisPrefix))
		return kv, nil
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", config.Mirror)
	}
}

// createAMQP connects the optional notification fan-out. A broker that is
// down only disables it.
func (f *DefaultFactory) createAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without notification fan-out",
			slog.String(applog.FieldError, err.Error()))
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		slog.String("exchange", config.AMQPExchange),
		slog.String("queue", config.AMQPQueue))
	return client
}

func (f *DefaultFactory) closeAll(ctx context.Context, result *BackendResult) {
	for name, cleanup := range result.Cleanup {
		if err := cleanup(ctx); err != nil {
			f.logger.Warn("Cleanup failed", slog.String(applog.FieldKey, name), slog.String(applog.FieldError, err.Error()))
		}
	}
}
