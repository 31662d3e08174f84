package log

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with a component name
type Logger struct {
	*slog.Logger
	root      *slog.Logger
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}

	root := slog.New(handler)
	return &Logger{
		Logger:    root.With(FieldComponent, component),
		root:      root,
		component: component,
	}
}

// WithComponent returns a logger on the default handler for component.
func WithComponent(component string) *Logger {
	root := slog.Default()
	return &Logger{
		Logger:    root.With(FieldComponent, component),
		root:      root,
		component: component,
	}
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		root:      l.root,
		component: l.component,
	}
}

// SetDefault installs the logger's handler as the process default, without
// its component attribute.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.root)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}
