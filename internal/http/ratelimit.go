package http

import (
	"sync"
	"time"
)

const (
	defaultRateLimit = 60
	limitWindow      = time.Minute
	sweepInterval    = 5 * time.Minute
)

// writeLimiter caps mutating requests per client in fixed windows. Reads are
// never counted, so polling /api/state does not eat into the write budget.
type writeLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
	clients  map[string]*budget
	done     chan struct{}
	stopOnce sync.Once
}

type budget struct {
	start time.Time
	used  int
}

func newWriteLimiter(limit int) *writeLimiter {
	l := &writeLimiter{
		limit:   limit,
		window:  limitWindow,
		now:     time.Now,
		clients: make(map[string]*budget),
		done:    make(chan struct{}),
	}
	go l.sweepEvery(sweepInterval)
	return l
}

func (l *writeLimiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

// sweep forgets clients whose window has expired.
func (l *writeLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for client, b := range l.clients {
		if now.Sub(b.start) >= l.window {
			delete(l.clients, client)
		}
	}
}

func (l *writeLimiter) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// take spends one write from client's budget. When the budget is exhausted
// it returns false and how long until the window resets.
func (l *writeLimiter) take(client string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[client]
	if !ok || now.Sub(b.start) >= l.window {
		l.clients[client] = &budget{start: now, used: 1}
		return 0, true
	}
	if b.used >= l.limit {
		return b.start.Add(l.window).Sub(now), false
	}
	b.used++
	return 0, true
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
