package backend

import (
	"fmt"

	"costtracker/internal/config"
)

const defaultRecentNotifications = 50

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type:   BackendType(appConfig.DataBackend),
		Mirror: MirrorType(appConfig.MirrorBackend),

		DataDirectory: appConfig.DataDirectory,

		FirebaseProjectID:       appConfig.FirebaseProjectID,
		FirebaseAPIKey:          appConfig.FirebaseAPIKey,
		FirebaseCredentialsFile: appConfig.FirebaseCredentialsFile,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		RedisURL:     appConfig.RedisURL,
		RedisPrefix:  appConfig.RedisPrefix,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		RecentNotifications: defaultRecentNotifications,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Mirror.IsValid() {
		return fmt.Errorf("invalid mirror type: %s", c.Mirror)
	}

	switch c.Type {
	case FirebaseBackend:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("Firebase project ID is required for firebase backend")
		}
		if c.FirebaseAPIKey == "" {
			return fmt.Errorf("Firebase API key is required for firebase backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" if empty
	}

	switch c.Mirror {
	case SQLiteMirror:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite mirror")
		}
	case RedisMirror:
		if c.RedisURL == "" {
			return fmt.Errorf("Redis URL is required for redis mirror")
		}
	}

	return nil
}
