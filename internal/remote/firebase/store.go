// Package firebase implements the remote ports on Cloud Firestore and the
// Identity Toolkit password API.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
	"costtracker/internal/remote"
)

// Config holds the project settings.
type Config struct {
	ProjectID       string
	APIKey          string
	CredentialsFile string
}

// ErrDenied is returned for operations on another user's documents.
var ErrDenied = remote.PermissionDenied("Missing or insufficient permissions.")

// Ensure interface conformance
var (
	_ remote.Store         = (*Backend)(nil)
	_ remote.Authenticator = (*Backend)(nil)
)

// Backend stores documents under users/{uid}/{collection}.
type Backend struct {
	remote.AuthState

	client *firestore.Client
	auth   *identity
	logger *applog.Logger

	mu   sync.Mutex
	subs map[string]map[*listener]struct{}
}

type listener struct {
	cancel context.CancelFunc
	errs   *remote.Feed[error]
}

func New(ctx context.Context, cfg Config) (*Backend, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore: %w", err)
	}
	id, err := newIdentity(ctx, cfg.APIKey)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Backend{
		client: client,
		auth:   id,
		logger: applog.WithComponent(applog.ComponentRemote),
		subs:   make(map[string]map[*listener]struct{}),
	}, nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) collection(uid string, c remote.Collection) *firestore.CollectionRef {
	return b.client.Collection("users").Doc(uid).Collection(c.Name)
}

func (b *Backend) authorize(uid string) error {
	cur, ok := b.Current()
	if !ok || cur.UID != uid {
		return ErrDenied
	}
	return nil
}

func (b *Backend) Subscribe(ctx context.Context, uid string, c remote.Collection) (*remote.Subscription, error) {
	if err := b.authorize(uid); err != nil {
		return nil, err
	}

	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	snaps := remote.NewFeed[remote.Snapshot](true)
	l := &listener{cancel: cancel, errs: remote.NewFeed[error](false)}

	b.mu.Lock()
	if b.subs[uid] == nil {
		b.subs[uid] = make(map[*listener]struct{})
	}
	b.subs[uid][l] = struct{}{}
	b.mu.Unlock()

	// No ordering clause: ordered queries omit documents missing the field.
	it := b.collection(uid, c).Snapshots(lctx)
	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if lctx.Err() != nil || errors.Is(err, iterator.Done) {
					return
				}
				l.errs.Put(classify(err))
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				l.errs.Put(classify(err))
				continue
			}
			snaps.Put(remote.Snapshot{
				Collection: c,
				Documents:  decode(docs, c),
				Revision:   remote.Revision(qs.ReadTime.UnixNano()),
			})
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			b.mu.Lock()
			delete(b.subs[uid], l)
			b.mu.Unlock()
			snaps.Close()
			l.errs.Close()
		})
	}
	return remote.NewSubscription(snaps.Out(), l.errs.Out(), stop), nil
}

func decode(docs []*firestore.DocumentSnapshot, c remote.Collection) []remote.Document {
	out := make([]remote.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentFromData(d.Ref.ID, d.Data(), c))
	}
	sortByCreation(out)
	return out
}

// documentFromData maps stored fields; missing ones decode to zero values.
func documentFromData(id string, data map[string]any, c remote.Collection) remote.Document {
	label, _ := data[c.LabelField].(string)
	var created string
	if ts, ok := data[remote.TimestampField].(time.Time); ok {
		created = core.FormatTimestamp(ts)
	}
	return remote.Document{
		ID:        id,
		Label:     label,
		Value:     remote.NumberField(data[c.ValueField]),
		CreatedAt: created,
	}
}

// sortByCreation orders documents by timestamp, undated ones last.
func sortByCreation(docs []remote.Document) {
	slices.SortStableFunc(docs, func(a, b remote.Document) int {
		switch {
		case a.CreatedAt == b.CreatedAt:
			return 0
		case a.CreatedAt == "":
			return 1
		case b.CreatedAt == "":
			return -1
		}
		return strings.Compare(a.CreatedAt, b.CreatedAt)
	})
}

// classify tags access-denied failures so callers can recognize them.
func classify(err error) error {
	if status.Code(err) == codes.PermissionDenied {
		return remote.PermissionDenied(status.Convert(err).Message())
	}
	return err
}

func (b *Backend) Create(ctx context.Context, uid string, c remote.Collection, f remote.Fields) (string, remote.Revision, error) {
	if err := b.authorize(uid); err != nil {
		return "", 0, err
	}
	ref, wr, err := b.collection(uid, c).Add(ctx, map[string]any{
		c.LabelField:          f.Label,
		c.ValueField:          f.Value,
		remote.TimestampField: firestore.ServerTimestamp,
	})
	if err != nil {
		return "", 0, classify(err)
	}
	return ref.ID, remote.Revision(wr.UpdateTime.UnixNano()), nil
}

func (b *Backend) Update(ctx context.Context, uid string, c remote.Collection, id string, f remote.Fields) (remote.Revision, error) {
	if err := b.authorize(uid); err != nil {
		return 0, err
	}
	wr, err := b.collection(uid, c).Doc(id).Update(ctx, []firestore.Update{
		{Path: c.LabelField, Value: f.Label},
		{Path: c.ValueField, Value: f.Value},
		{Path: remote.TimestampField, Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return 0, classify(err)
	}
	return remote.Revision(wr.UpdateTime.UnixNano()), nil
}

func (b *Backend) Delete(ctx context.Context, uid string, c remote.Collection, id string) (remote.Revision, error) {
	if err := b.authorize(uid); err != nil {
		return 0, err
	}
	wr, err := b.collection(uid, c).Doc(id).Delete(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return remote.Revision(wr.UpdateTime.UnixNano()), nil
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (core.User, error) {
	u, err := b.auth.signIn(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	b.switchUser(&u)
	return u, nil
}

func (b *Backend) SignUp(ctx context.Context, email, password string) (core.User, error) {
	u, err := b.auth.signUp(ctx, email, password)
	if err != nil {
		return core.User{}, err
	}
	b.switchUser(&u)
	return u, nil
}

func (b *Backend) SignOut(_ context.Context) error {
	b.switchUser(nil)
	return nil
}

// switchUser changes the identity and revokes listeners of the previous one.
// The server client bypasses security rules, so revocation happens here.
func (b *Backend) switchUser(u *core.User) {
	prev, hadPrev := b.Current()
	b.Set(u)
	if !hadPrev || (u != nil && u.UID == prev.UID) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for l := range b.subs[prev.UID] {
		l.errs.Put(ErrDenied)
		l.cancel()
	}
	delete(b.subs, prev.UID)
	b.logger.Debug("Revoked listeners", slog.String(applog.FieldUserID, prev.UID))
}
