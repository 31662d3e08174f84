package http

import (
	"testing"
	"time"
)

func TestWriteLimiterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newWriteLimiter(2)
	defer l.stop()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if _, ok := l.take("203.0.113.7"); !ok {
			t.Fatalf("write %d limited too early", i)
		}
	}

	now = now.Add(20 * time.Second)
	wait, ok := l.take("203.0.113.7")
	if ok {
		t.Fatal("third write in the window must be limited")
	}
	if wait != 40*time.Second {
		t.Errorf("wait = %v, want 40s", wait)
	}
	if _, ok := l.take("198.51.100.4"); !ok {
		t.Error("other clients have their own budget")
	}

	// Denied writes do not push the window out.
	now = now.Add(40 * time.Second)
	if _, ok := l.take("203.0.113.7"); !ok {
		t.Error("budget should reset when the window ends")
	}
}

func TestWriteLimiterSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newWriteLimiter(5)
	defer l.stop()
	l.now = func() time.Time { return now }

	l.take("203.0.113.7")
	now = now.Add(30 * time.Second)
	l.take("198.51.100.4")

	now = now.Add(45 * time.Second)
	l.sweep()
	if _, ok := l.clients["203.0.113.7"]; ok {
		t.Error("expired client kept")
	}
	if _, ok := l.clients["198.51.100.4"]; !ok {
		t.Error("active client dropped")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := map[time.Duration]int{
		0:                       1,
		300 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
		time.Minute:             60,
	}
	for d, want := range tests {
		if got := retryAfterSeconds(d); got != want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", d, got, want)
		}
	}
}
