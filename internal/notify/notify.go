// Package notify carries user-facing toasts out of the session: to the
// logs, to a message broker and back to the HTTP request that caused them.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	SuccessDuration = 3000 * time.Millisecond
	ErrorDuration   = 5000 * time.Millisecond
)

type Notification struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"-"`
	At          time.Time     `json:"at"`
}

// DurationMillis is the display time in milliseconds.
func (n Notification) DurationMillis() int64 {
	return n.Duration.Milliseconds()
}

func Success(title string) Notification {
	return Notification{Title: title, Status: StatusSuccess, Duration: SuccessDuration, At: time.Now()}
}

// Failure describes err with the message the backend produced.
func Failure(title string, err error) Notification {
	return Notification{
		Title:       title,
		Description: core.Message(err),
		Status:      StatusError,
		Duration:    ErrorDuration,
		At:          time.Now(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Log writes notifications to the structured log.
type Log struct {
	logger *applog.Logger
}

func NewLog() *Log {
	return &Log{logger: applog.WithComponent(applog.ComponentNotify)}
}

func (l *Log) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Status == StatusError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Title,
		slog.String("status", string(n.Status)),
		slog.String("description", n.Description))
}

// Multi fans out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Recorder keeps the most recent notifications.
type Recorder struct {
	mu   sync.Mutex
	size int
	buf  []Notification
}

func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = 20
	}
	return &Recorder{size: size}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, n)
	if len(r.buf) > r.size {
		r.buf = append([]Notification(nil), r.buf[len(r.buf)-r.size:]...)
	}
}

// Recent returns the retained notifications, oldest first.
func (r *Recorder) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.buf...)
}

type collectorKey struct{}

// Collector gathers notifications raised on behalf of one request.
type Collector struct {
	mu  sync.Mutex
	out []Notification
}

func (c *Collector) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.out...)
}

// Last returns the most recent collected notification.
func (c *Collector) Last() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.out) == 0 {
		return Notification{}, false
	}
	return c.out[len(c.out)-1], true
}

// WithCollector returns a context whose notifications are also collected.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// Send delivers n to notifier and to the collector in ctx, if any.
func Send(ctx context.Context, notifier Notifier, n Notification) {
	if c, ok := ctx.Value(collectorKey{}).(*Collector); ok {
		c.mu.Lock()
		c.out = append(c.out, n)
		c.mu.Unlock()
	}
	if notifier != nil {
		notifier.Notify(ctx, n)
	}
}
