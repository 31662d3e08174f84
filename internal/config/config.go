package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

// Backend names accepted by DATA_BACKEND and MIRROR_BACKEND.
const (
	DataMemory   = "memory"
	DataFirebase = "firebase"

	MirrorSQLite = "sqlite"
	MirrorRedis  = "redis"
)

var (
	validDataBackends   = []string{DataMemory, DataFirebase}
	validMirrorBackends = []string{MirrorSQLite, MirrorRedis}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"text", "json", "tint"}
)

type Config struct {
	// HTTP Server
	Port string

	// Remote backend
	DataBackend             string
	DataDirectory           string
	FirebaseProjectID       string
	FirebaseAPIKey          string
	FirebaseCredentialsFile string

	// Mirror
	MirrorBackend string
	SQLiteDBPath  string
	RedisURL      string
	RedisPrefix   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Display
	Currency string

	// Logging
	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:             getEnv("DATA_BACKEND", DataMemory),
		DataDirectory:           getEnv("DATA_DIRECTORY", "data"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		MirrorBackend: getEnv("MIRROR_BACKEND", MirrorSQLite),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/costtracker.db"),
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPrefix:   getEnv("REDIS_PREFIX", "costtracker"),

		// Empty by default: the broker is optional.
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "costtracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		Currency: strings.ToUpper(getEnv("CURRENCY", "USD")),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validDataBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validDataBackends))
	}

	if c.DataBackend == DataFirebase {
		if c.FirebaseProjectID == "" {
			errors = append(errors, "FIREBASE_PROJECT_ID is required when using firebase backend")
		}
		if c.FirebaseAPIKey == "" {
			errors = append(errors, "FIREBASE_API_KEY is required when using firebase backend")
		}
		if c.FirebaseCredentialsFile != "" {
			if _, err := os.Stat(c.FirebaseCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Firebase credentials file does not exist: %s", c.FirebaseCredentialsFile))
			}
		}
	}

	if !slices.Contains(validMirrorBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validMirrorBackends))
	}

	switch c.MirrorBackend {
	case MirrorSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite mirror")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case MirrorRedis:
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when using redis mirror")
		} else if u, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if u.Scheme != "redis" && u.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", u.Scheme))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	} else if c.ShutdownTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at most 5 minutes", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
