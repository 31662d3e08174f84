// Package remote defines the ports to the hosted backend: per-user document
// collections with live listeners, and the identity service.
package remote

import (
	"context"
	"errors"

	"costtracker/internal/core"
)

// TimestampField holds the server-assigned creation instant of a document.
const TimestampField = "timestamp"

// Collection describes one per-user collection and the names of its fields.
type Collection struct {
	Name       string
	LabelField string
	ValueField string
}

var (
	Items      = Collection{Name: "items", LabelField: "name", ValueField: "cost"}
	OtherCosts = Collection{Name: "otherCosts", LabelField: "description", ValueField: "amount"}
)

// ErrPermissionRace marks an access-denied listener failure. It is expected
// right after sign-out and is not shown to the user.
var ErrPermissionRace = errors.New("permission denied")

// IsPermissionRace reports whether err is a post-sign-out access denial.
func IsPermissionRace(err error) bool {
	return errors.Is(err, ErrPermissionRace)
}

// PermissionDenied returns an access-denied error that displays as msg and
// matches ErrPermissionRace.
func PermissionDenied(msg string) error {
	return &permissionError{msg: msg}
}

type permissionError struct {
	msg string
}

func (e *permissionError) Error() string { return e.msg }

func (e *permissionError) Is(target error) bool { return target == ErrPermissionRace }

// Revision orders the states of one collection. Larger is newer.
type Revision int64

type (
	// Fields are the writable fields of a document.
	Fields struct {
		Label string
		Value float64
	}

	// Document is a decoded remote document. CreatedAt is already an
	// ISO-8601 string.
	Document struct {
		ID        string
		Label     string
		Value     float64
		CreatedAt string
	}

	// Snapshot is the full contents of a collection, in arrival order.
	Snapshot struct {
		Collection Collection
		Documents  []Document
		Revision   Revision
	}

	// AuthEvent is emitted by the identity listener. A nil User means
	// signed out.
	AuthEvent struct {
		User *core.User
	}
)

// Ports for outbound adapters.
type (
	Store interface {
		// Subscribe starts a listener. The current contents are delivered
		// first, then a new snapshot on every change.
		Subscribe(ctx context.Context, uid string, c Collection) (*Subscription, error)
		Create(ctx context.Context, uid string, c Collection, f Fields) (id string, rev Revision, err error)
		Update(ctx context.Context, uid string, c Collection, id string, f Fields) (Revision, error)
		Delete(ctx context.Context, uid string, c Collection, id string) (Revision, error)
	}

	Authenticator interface {
		SignIn(ctx context.Context, email, password string) (core.User, error)
		SignUp(ctx context.Context, email, password string) (core.User, error)
		SignOut(ctx context.Context) error
		// Watch delivers the current identity, then every change, until
		// the returned cancel func is called or ctx ends.
		Watch(ctx context.Context) (<-chan AuthEvent, func())
	}
)

// Subscription is a live listener on one collection.
type Subscription struct {
	snapshots <-chan Snapshot
	errs      <-chan error
	stop      func()
}

func NewSubscription(snapshots <-chan Snapshot, errs <-chan error, stop func()) *Subscription {
	return &Subscription{snapshots: snapshots, errs: errs, stop: stop}
}

// Snapshots is closed once the subscription has stopped.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.snapshots }

func (s *Subscription) Errors() <-chan error { return s.errs }

// Stop is safe to call more than once.
func (s *Subscription) Stop() {
	if s.stop != nil {
		s.stop()
	}
}
