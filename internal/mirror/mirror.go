// Package mirror keeps a durable copy of the collections so a restart does
// not start from an empty view. It is never read back while running.
package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"costtracker/internal/core"
	applog "costtracker/internal/log"
	"costtracker/internal/state"
)

// Keys under which the collections and their owner are stored.
const (
	KeyItems      = "items"
	KeyOtherCosts = "otherCosts"
	KeyOwner      = "owner"
)

const writeTimeout = 2 * time.Second

// KV is a durable string key/value store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

type Mirror struct {
	kv     KV
	logger *applog.Logger
}

func New(kv KV) *Mirror {
	return &Mirror{kv: kv, logger: applog.WithComponent(applog.ComponentMirror)}
}

// Seed loads the mirrored collections into st. Missing or unreadable values
// leave the collection empty.
func (m *Mirror) Seed(ctx context.Context, st *state.Store) {
	items := load[core.Item](ctx, m, KeyItems)
	costs := load[core.OtherCost](ctx, m, KeyOtherCosts)
	st.Items.SetAll(items)
	st.OtherCosts.SetAll(costs)

	if owner, ok, err := m.kv.Get(ctx, KeyOwner); err == nil && ok {
		st.SetOwner(owner)
	}

	m.logger.InfoContext(ctx, "Seeded local state from mirror",
		applog.FieldOperation, applog.OpSeed,
		slog.Int("items", len(items)),
		slog.Int("other_costs", len(costs)))
}

func load[T any](ctx context.Context, m *Mirror, key string) []T {
	raw, ok, err := m.kv.Get(ctx, key)
	if err != nil {
		m.logger.WarnContext(ctx, "Mirror read failed", applog.FieldKey, key, applog.FieldError, err)
		return nil
	}
	if !ok {
		return nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		m.logger.WarnContext(ctx, "Discarding unreadable mirror value", applog.FieldKey, key, applog.FieldError, err)
		return nil
	}
	return out
}

// Attach persists st after every transition. Write failures are logged.
func (m *Mirror) Attach(st *state.Store) {
	st.Observe(func(change string) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		m.save(ctx, st, change)
	})
}

func (m *Mirror) save(ctx context.Context, st *state.Store, change string) {
	var (
		key   string
		value string
		err   error
	)
	switch change {
	case state.ChangeItems:
		key = KeyItems
		value, err = encode(st.Items.All())
	case state.ChangeOtherCosts:
		key = KeyOtherCosts
		value, err = encode(st.OtherCosts.All())
	case state.ChangeUser:
		key, value = KeyOwner, st.Owner()
	default:
		return
	}
	if err == nil {
		err = m.kv.Set(ctx, key, value)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "Mirror write failed",
			applog.FieldOperation, applog.OpPersist,
			applog.FieldKey, key,
			applog.FieldError, err)
	}
}

func encode[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *Mirror) Close() error {
	return m.kv.Close()
}
