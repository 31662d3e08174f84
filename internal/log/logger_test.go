package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, ComponentMirror)
	logger.With(FieldKey, "items").Info("saved")

	out := buf.String()
	if !strings.Contains(out, "component=mirror") || !strings.Contains(out, "key=items") {
		t.Errorf("unexpected output %q", out)
	}
	if logger.Component() != ComponentMirror {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, ComponentHTTP)
	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("expected the logger stored in the context")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q, want unknown", got.Component())
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{502, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newTestLogger(&buf, ComponentHTTP))
		req := httptest.NewRequest("GET", "/api/state?sort=name", nil)
		sl.LogHTTPEnd(context.Background(), req, tt.status, 3, "203.0.113.7")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: expected %s in %q", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "path=/api/state") || !strings.Contains(out, `query="sort=name"`) {
			t.Errorf("status %d: missing request fields in %q", tt.status, out)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newTestLogger(&buf, ComponentSession))
	sl.LogError(context.Background(), "Write failed", errors.New("quota exceeded"), OpCreate,
		NewFields().WithDocument("u1", "items", "a1"))

	out := buf.String()
	for _, want := range []string{`error="quota exceeded"`, "operation=create", "uid=u1", "collection=items", "document_id=a1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %q", want, out)
		}
	}
}
