// Package memory is an in-process backend with the same observable behavior
// as the hosted one: per-user collections with live listeners, server-side
// timestamps and email/password accounts.
package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"costtracker/internal/core"
	"costtracker/internal/remote"
)

// Error messages follow the hosted identity and document services.
var (
	ErrDenied             = remote.PermissionDenied("Missing or insufficient permissions.")
	ErrEmailExists        = errors.New("EMAIL_EXISTS")
	ErrWeakPassword       = errors.New("WEAK_PASSWORD : Password should be at least 6 characters")
	ErrInvalidEmail       = errors.New("INVALID_EMAIL")
	ErrInvalidCredentials = errors.New("INVALID_LOGIN_CREDENTIALS")
)

// Operation names accepted by FailNext.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpSubscribe = "subscribe"
	OpSignIn    = "signin"
	OpSignUp    = "signup"
	OpSignOut   = "signout"
)

// Ensure interface conformance
var (
	_ remote.Store         = (*Backend)(nil)
	_ remote.Authenticator = (*Backend)(nil)
)

type Backend struct {
	remote.AuthState

	mu       sync.Mutex
	now      func() time.Time
	accounts map[string]account
	cols     map[colKey]*collection
	failures map[string]error
}

type account struct {
	uid   string
	email string
	hash  []byte
}

type colKey struct {
	uid  string
	name string
}

type collection struct {
	docs      []remote.Document
	rev       remote.Revision
	listeners map[*listener]struct{}
}

type listener struct {
	col   remote.Collection
	snaps *remote.Feed[remote.Snapshot]
	errs  *remote.Feed[error]
}

func New() *Backend {
	return &Backend{
		now:      time.Now,
		accounts: make(map[string]account),
		cols:     make(map[colKey]*collection),
		failures: make(map[string]error),
	}
}

// NewFromFiles seeds accounts from base/seed_users.txt ("email password" per
// line, '#' comments allowed).
func NewFromFiles(base string) *Backend {
	b := New()
	for _, line := range readLines(filepath.Join(base, "seed_users.txt")) {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		if _, err := b.register(parts[0], parts[1]); err != nil {
			continue
		}
	}
	return b
}

// SetClock replaces the server clock.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// FailNext makes the next call of op return err.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

func (b *Backend) takeFailure(op string) error {
	err, ok := b.failures[op]
	if ok {
		delete(b.failures, op)
	}
	return err
}

// BreakListeners delivers err to every listener on uid's collection.
func (b *Backend) BreakListeners(uid string, c remote.Collection, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.cols[colKey{uid, c.Name}]
	if col == nil {
		return
	}
	for l := range col.listeners {
		l.errs.Put(err)
	}
}

// Documents returns the stored documents of a collection, in arrival order.
func (b *Backend) Documents(uid string, c remote.Collection) []remote.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.cols[colKey{uid, c.Name}]
	if col == nil {
		return nil
	}
	return append([]remote.Document(nil), col.docs...)
}

func (b *Backend) collection(uid string, c remote.Collection) *collection {
	key := colKey{uid, c.Name}
	col := b.cols[key]
	if col == nil {
		col = &collection{listeners: make(map[*listener]struct{})}
		b.cols[key] = col
	}
	return col
}

func (b *Backend) authorize(uid string) error {
	cur, ok := b.Current()
	if !ok || cur.UID != uid {
		return ErrDenied
	}
	return nil
}

func (col *collection) snapshot(c remote.Collection) remote.Snapshot {
	return remote.Snapshot{
		Collection: c,
		Documents:  append([]remote.Document(nil), col.docs...),
		Revision:   col.rev,
	}
}

func (col *collection) broadcast() {
	for l := range col.listeners {
		l.snaps.Put(col.snapshot(l.col))
	}
}

func (b *Backend) Subscribe(_ context.Context, uid string, c remote.Collection) (*remote.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(OpSubscribe); err != nil {
		return nil, err
	}
	if err := b.authorize(uid); err != nil {
		return nil, err
	}

	col := b.collection(uid, c)
	l := &listener{
		col:   c,
		snaps: remote.NewFeed[remote.Snapshot](true),
		errs:  remote.NewFeed[error](false),
	}
	col.listeners[l] = struct{}{}
	l.snaps.Put(col.snapshot(c))

	stop := func() {
		b.mu.Lock()
		delete(col.listeners, l)
		b.mu.Unlock()
		l.snaps.Close()
		l.errs.Close()
	}
	return remote.NewSubscription(l.snaps.Out(), l.errs.Out(), stop), nil
}

func (b *Backend) Create(_ context.Context, uid string, c remote.Collection, f remote.Fields) (string, remote.Revision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(OpCreate); err != nil {
		return "", 0, err
	}
	if err := b.authorize(uid); err != nil {
		return "", 0, err
	}

	col := b.collection(uid, c)
	doc := remote.Document{
		ID:        uuid.NewString(),
		Label:     f.Label,
		Value:     f.Value,
		CreatedAt: core.FormatTimestamp(b.now()),
	}
	col.docs = append(col.docs, doc)
	col.rev++
	col.broadcast()
	return doc.ID, col.rev, nil
}

func (b *Backend) Update(_ context.Context, uid string, c remote.Collection, id string, f remote.Fields) (remote.Revision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(OpUpdate); err != nil {
		return 0, err
	}
	if err := b.authorize(uid); err != nil {
		return 0, err
	}

	col := b.collection(uid, c)
	for i := range col.docs {
		if col.docs[i].ID != id {
			continue
		}
		col.docs[i] = remote.Document{
			ID:        id,
			Label:     f.Label,
			Value:     f.Value,
			CreatedAt: core.FormatTimestamp(b.now()),
		}
		col.rev++
		col.broadcast()
		return col.rev, nil
	}
	return 0, fmt.Errorf("No document to update: users/%s/%s/%s", uid, c.Name, id)
}

// Delete succeeds when the document does not exist.
func (b *Backend) Delete(_ context.Context, uid string, c remote.Collection, id string) (remote.Revision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.takeFailure(OpDelete); err != nil {
		return 0, err
	}
	if err := b.authorize(uid); err != nil {
		return 0, err
	}

	col := b.collection(uid, c)
	col.rev++
	for i := range col.docs {
		if col.docs[i].ID == id {
			col.docs = append(col.docs[:i], col.docs[i+1:]...)
			col.broadcast()
			break
		}
	}
	return col.rev, nil
}

func (b *Backend) register(email, password string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return core.User{}, ErrInvalidEmail
	}
	if len(password) < 6 {
		return core.User{}, ErrWeakPassword
	}
	if _, ok := b.accounts[email]; ok {
		return core.User{}, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	acc := account{uid: uuid.NewString(), email: email, hash: hash}
	b.accounts[email] = acc
	return core.User{UID: acc.uid, Email: acc.email}, nil
}

// SignUp creates the account and signs it in.
func (b *Backend) SignUp(_ context.Context, email, password string) (core.User, error) {
	b.mu.Lock()
	if err := b.takeFailure(OpSignUp); err != nil {
		b.mu.Unlock()
		return core.User{}, err
	}
	user, err := b.register(email, password)
	b.mu.Unlock()
	if err != nil {
		return core.User{}, err
	}

	b.switchUser(&user)
	return user, nil
}

func (b *Backend) SignIn(_ context.Context, email, password string) (core.User, error) {
	b.mu.Lock()
	if err := b.takeFailure(OpSignIn); err != nil {
		b.mu.Unlock()
		return core.User{}, err
	}
	acc, ok := b.accounts[strings.ToLower(strings.TrimSpace(email))]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return core.User{}, ErrInvalidCredentials
	}

	user := core.User{UID: acc.uid, Email: acc.email}
	b.switchUser(&user)
	return user, nil
}

func (b *Backend) SignOut(_ context.Context) error {
	b.mu.Lock()
	err := b.takeFailure(OpSignOut)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.switchUser(nil)
	return nil
}

// switchUser changes the identity. Listeners of the previous user lose
// access, the way security rules cut them off.
func (b *Backend) switchUser(u *core.User) {
	prev, hadPrev := b.Current()
	b.Set(u)
	if !hadPrev || (u != nil && u.UID == prev.UID) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for key, col := range b.cols {
		if key.uid != prev.UID {
			continue
		}
		for l := range col.listeners {
			l.errs.Put(ErrDenied)
			delete(col.listeners, l)
		}
	}
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
