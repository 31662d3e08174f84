package backend

import (
	"context"

	"costtracker/internal/mirror"
	"costtracker/internal/notify"
	"costtracker/internal/remote"
)

// Backend is everything the session needs from the outside world.
type Backend struct {
	Store    remote.Store
	Auth     remote.Authenticator
	Mirror   *mirror.Mirror
	Notifier notify.Notifier
	// Recent keeps the last notifications for the HTTP surface.
	Recent *notify.Recorder
	// Checks are readiness probes keyed by dependency name.
	Checks map[string]func(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func(ctx context.Context) error

// BackendResult contains the backend instance and its cleanup steps.
type BackendResult struct {
	Backend Backend
	Cleanup map[string]CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type   BackendType
	Mirror MirrorType

	// Memory backend specific
	DataDirectory string

	// Firebase specific
	FirebaseProjectID       string
	FirebaseAPIKey          string
	FirebaseCredentialsFile string

	// Mirror specific
	SQLiteDBPath string
	RedisURL     string
	RedisPrefix  string

	// Notification fan-out, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// RecentNotifications sizes the in-memory notification history.
	RecentNotifications int
}

// BackendType represents the type of remote backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	FirebaseBackend BackendType = "firebase"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FirebaseBackend:
		return true
	default:
		return false
	}
}

// MirrorType selects the durable local store.
type MirrorType string

const (
	SQLiteMirror MirrorType = "sqlite"
	RedisMirror  MirrorType = "redis"
)

func (mt MirrorType) IsValid() bool {
	switch mt {
	case SQLiteMirror, RedisMirror:
		return true
	default:
		return false
	}
}
