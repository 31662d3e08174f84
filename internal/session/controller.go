// Package session gates the remote collections behind the signed-in
// identity. A single owner goroutine applies every state transition: auth
// changes, snapshots, listener errors and confirmed writes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
	"costtracker/internal/notify"
	"costtracker/internal/remote"
	"costtracker/internal/state"
)

// ErrNotRunning is returned when the owner loop has stopped.
var ErrNotRunning = errors.New("session is not running")

var errSignedOut = errors.New("You must be signed in.")

const eventBuffer = 64

type event interface{ isEvent() }

type (
	authEvent struct {
		user *core.User
	}
	snapshotEvent struct {
		epoch uint64
		snap  remote.Snapshot
	}
	subErrEvent struct {
		epoch      uint64
		collection remote.Collection
		err        error
	}
	applyEvent struct {
		fn   func()
		done chan struct{}
	}
)

func (authEvent) isEvent()     {}
func (snapshotEvent) isEvent() {}
func (subErrEvent) isEvent()   {}
func (applyEvent) isEvent()    {}

type Controller struct {
	remote   remote.Store
	auth     remote.Authenticator
	state    *state.Store
	notifier notify.Notifier
	logger   *applog.Logger
	now      func() time.Time

	events chan event
	done   chan struct{}

	mu      sync.Mutex
	changed chan struct{}

	// Owned by the loop goroutine.
	runCtx    context.Context
	epoch     uint64
	uid       string
	subs      []*remote.Subscription
	subCancel context.CancelFunc
	group     *errgroup.Group
}

func New(store remote.Store, auth remote.Authenticator, st *state.Store, notifier notify.Notifier) *Controller {
	return &Controller{
		remote:   store,
		auth:     auth,
		state:    st,
		notifier: notifier,
		logger:   applog.WithComponent(applog.ComponentSession),
		now:      time.Now,
		events:   make(chan event, eventBuffer),
		done:     make(chan struct{}),
		changed:  make(chan struct{}),
	}
}

// State returns the store the controller writes to.
func (c *Controller) State() *state.Store { return c.state }

// Run is the owner loop. It returns when ctx ends.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.runCtx = ctx

	authEvents, stopWatch := c.auth.Watch(ctx)
	defer stopWatch()
	defer c.teardown()

	c.logger.InfoContext(ctx, "Session loop started", applog.FieldOperation, applog.OpStartup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-authEvents:
			if !ok {
				authEvents = nil
				continue
			}
			c.handle(authEvent{user: ev.User})
		case ev := <-c.events:
			c.handle(ev)
		}
		c.broadcast()
	}
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case authEvent:
		if ev.user == nil {
			c.clear()
		} else {
			c.signIn(*ev.user)
		}
	case snapshotEvent:
		c.applySnapshot(ev)
	case subErrEvent:
		c.subscriptionFailed(ev)
	case applyEvent:
		ev.fn()
		close(ev.done)
	}
}

// broadcast wakes every waiter after a loop iteration.
func (c *Controller) broadcast() {
	c.mu.Lock()
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()
}

func (c *Controller) changedChan() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// await blocks until cond holds after some loop iteration.
func (c *Controller) await(ctx context.Context, cond func() bool) error {
	for {
		ch := c.changedChan()
		if cond() {
			return nil
		}
		select {
		case <-ch:
		case <-c.done:
			return ErrNotRunning
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// do runs fn on the owner loop and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	ev := applyEvent{fn: fn, done: make(chan struct{})}
	select {
	case c.events <- ev:
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ev.done:
		return nil
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post hands an event from a forwarder to the loop.
func (c *Controller) post(ctx context.Context, ev event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func (c *Controller) signIn(u core.User) {
	if c.uid == u.UID {
		return
	}
	c.teardown()
	if c.state.Owner() != u.UID {
		c.state.ResetCollections()
	}
	c.state.SetUser(u)
	c.uid = u.UID
	c.logger.Info("Signed in", slog.String(applog.FieldUserID, u.UID))

	subCtx, cancel := context.WithCancel(c.runCtx)
	g, gctx := errgroup.WithContext(subCtx)
	c.subCancel = cancel
	c.group = g

	for _, col := range []remote.Collection{remote.Items, remote.OtherCosts} {
		sub, err := c.remote.Subscribe(subCtx, u.UID, col)
		if err != nil {
			c.subscriptionFailed(subErrEvent{epoch: c.epoch, collection: col, err: err})
			continue
		}
		c.subs = append(c.subs, sub)
		epoch := c.epoch
		g.Go(func() error {
			c.forward(gctx, epoch, col, sub)
			return nil
		})
	}
}

func (c *Controller) forward(ctx context.Context, epoch uint64, col remote.Collection, sub *remote.Subscription) {
	snaps, errs := sub.Snapshots(), sub.Errors()
	for snaps != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snaps:
			if !ok {
				snaps = nil
				continue
			}
			c.post(ctx, snapshotEvent{epoch: epoch, snap: s})
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.post(ctx, subErrEvent{epoch: epoch, collection: col, err: err})
		}
	}
}

// teardown stops the current subscriptions. Anything they already queued
// carries the old epoch and is ignored.
func (c *Controller) teardown() {
	c.epoch++
	if c.subCancel != nil {
		c.subCancel()
	}
	for _, sub := range c.subs {
		sub.Stop()
	}
	if c.group != nil {
		_ = c.group.Wait()
	}
	c.subs, c.subCancel, c.group = nil, nil, nil
	c.uid = ""
}

// clear performs the signed-out transition: stop listeners, empty the
// collections, then drop the identity. Repeating it is a no-op.
func (c *Controller) clear() {
	c.teardown()
	if _, ok := c.state.User(); !ok {
		return
	}
	c.state.ResetCollections()
	c.state.ClearUser()
	c.logger.Info("Signed out")
}

func (c *Controller) applySnapshot(ev snapshotEvent) {
	if ev.epoch != c.epoch {
		c.logger.Debug("Dropping snapshot from previous session",
			slog.String(applog.FieldCollection, ev.snap.Collection.Name),
			slog.Uint64(applog.FieldEpoch, ev.epoch))
		return
	}

	var applied bool
	switch ev.snap.Collection.Name {
	case remote.Items.Name:
		applied = c.state.Items.ApplySnapshot(remote.ItemsFromSnapshot(ev.snap), ev.snap.Revision)
	case remote.OtherCosts.Name:
		applied = c.state.OtherCosts.ApplySnapshot(remote.OtherCostsFromSnapshot(ev.snap), ev.snap.Revision)
	}
	if !applied {
		c.logger.Debug("Dropping stale snapshot",
			slog.String(applog.FieldCollection, ev.snap.Collection.Name),
			slog.Int64(applog.FieldRevision, int64(ev.snap.Revision)))
	}
}

func (c *Controller) subscriptionFailed(ev subErrEvent) {
	if ev.epoch != c.epoch {
		return
	}
	if remote.IsPermissionRace(ev.err) {
		c.logger.Debug("Ignoring access denial on listener",
			slog.String(applog.FieldCollection, ev.collection.Name),
			slog.String(applog.FieldError, ev.err.Error()))
		return
	}

	title := "Error fetching items"
	if ev.collection.Name == remote.OtherCosts.Name {
		title = "Error fetching costs"
	}
	err := core.NewError(core.KindSubscription, "subscribe "+ev.collection.Name, ev.err)
	c.logger.Error("Listener failed",
		slog.String(applog.FieldCollection, ev.collection.Name),
		slog.String(applog.FieldError, err.String()))
	notify.Send(c.runCtx, c.notifier, notify.Failure(title, err))
}
