package remote

import (
	"context"
	"sync"

	"costtracker/internal/core"
)

// AuthState tracks the current identity and fans changes out to watchers.
// Backends embed it to implement Authenticator.Watch.
type AuthState struct {
	mu       sync.Mutex
	user     *core.User
	watchers map[int]*Feed[AuthEvent]
	next     int
}

// Current returns the signed-in user, if any.
func (a *AuthState) Current() (core.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return core.User{}, false
	}
	return *a.user, true
}

// Set records the identity (nil for signed out) and notifies every watcher.
func (a *AuthState) Set(u *core.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = cloneUser(u)
	for _, w := range a.watchers {
		w.Put(AuthEvent{User: cloneUser(u)})
	}
}

func (a *AuthState) Watch(ctx context.Context) (<-chan AuthEvent, func()) {
	feed := NewFeed[AuthEvent](false)

	a.mu.Lock()
	if a.watchers == nil {
		a.watchers = make(map[int]*Feed[AuthEvent])
	}
	id := a.next
	a.next++
	a.watchers[id] = feed
	feed.Put(AuthEvent{User: cloneUser(a.user)})
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.watchers, id)
			a.mu.Unlock()
			feed.Close()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return feed.Out(), func() {
		stop()
		cancel()
	}
}

func cloneUser(u *core.User) *core.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
