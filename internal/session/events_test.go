package session

import (
	"context"
	"testing"

	"costtracker/internal/core"
	"costtracker/internal/notify"
	"costtracker/internal/remote"
	"costtracker/internal/remote/memory"
	"costtracker/internal/state"
)

// newIdle builds a controller whose loop is driven by the test.
func newIdle() *Controller {
	b := memory.New()
	c := New(b, b, state.NewStore(), notify.NewRecorder(10))
	c.runCtx = context.Background()
	return c
}

func snapshot(epoch uint64, rev remote.Revision, names ...string) snapshotEvent {
	docs := make([]remote.Document, len(names))
	for i, n := range names {
		docs[i] = remote.Document{ID: n, Label: n, Value: 1}
	}
	return snapshotEvent{epoch: epoch, snap: remote.Snapshot{Collection: remote.Items, Documents: docs, Revision: rev}}
}

func TestSnapshotFromPreviousEpochIsIgnored(t *testing.T) {
	c := newIdle()
	c.state.SetUser(core.User{UID: "u1"})
	old := c.epoch
	c.teardown()

	c.handle(snapshot(old, 10, "stale"))
	if c.state.Items.Len() != 0 {
		t.Fatalf("stale snapshot applied: %+v", c.state.Items.All())
	}

	c.handle(snapshot(c.epoch, 10, "fresh"))
	if got := c.state.Items.All(); len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("items = %+v", got)
	}
}

func TestOptimisticWriteSurvivesOlderSnapshot(t *testing.T) {
	c := newIdle()
	c.state.SetUser(core.User{UID: "u1"})
	c.handle(snapshot(c.epoch, 3, "a"))

	done := make(chan struct{})
	c.handle(applyEvent{done: done, fn: func() {
		c.state.Items.ApplyWrite(5, state.Upsert(core.Item{ID: "b", Name: "b", Cost: 2}))
	}})
	<-done

	// Read before the write was committed.
	c.handle(snapshot(c.epoch, 4, "a"))
	if got := c.state.Items.Len(); got != 2 {
		t.Fatalf("optimistic record lost, items = %+v", c.state.Items.All())
	}

	// The listener catches up.
	c.handle(snapshot(c.epoch, 5, "a", "b"))
	if got := c.state.Items.Len(); got != 2 {
		t.Fatalf("items = %+v", c.state.Items.All())
	}
}

func TestWriteConfirmedBySnapshotKeepsServerTimestamp(t *testing.T) {
	c := newIdle()
	c.state.SetUser(core.User{UID: "u1"})

	ev := snapshot(c.epoch, 5, "b")
	ev.snap.Documents[0].CreatedAt = "2026-01-01T00:00:00.000Z"
	c.handle(ev)

	done := make(chan struct{})
	c.handle(applyEvent{done: done, fn: func() {
		c.state.Items.ApplyWrite(5, state.Upsert(core.Item{ID: "b", Name: "b", Cost: 1, CreatedAt: "2026-01-01T00:00:07.123Z"}))
	}})
	<-done

	got := c.state.Items.All()
	if len(got) != 1 || got[0].CreatedAt != "2026-01-01T00:00:00.000Z" {
		t.Fatalf("items = %+v, want server CreatedAt", got)
	}
}

func TestSignedOutEventKeepsMirroredData(t *testing.T) {
	c := newIdle()
	c.state.Items.SetAll([]core.Item{{ID: "a", Name: "Rent", Cost: 800}})
	c.state.SetOwner("u1")

	c.handle(authEvent{user: nil})
	if c.state.Items.Len() != 1 {
		t.Fatal("initial signed-out event must not wipe restored data")
	}
}

func TestSameUserEventIsNoop(t *testing.T) {
	c := newIdle()
	c.uid = "u1"
	c.state.SetUser(core.User{UID: "u1"})
	epoch := c.epoch

	c.handle(authEvent{user: &core.User{UID: "u1"}})
	if c.epoch != epoch {
		t.Fatal("repeat sign-in event must not resubscribe")
	}
}

func TestSignInAsOtherOwnerResetsRestoredData(t *testing.T) {
	b := memory.New()
	st := state.NewStore()
	st.Items.SetAll([]core.Item{{ID: "a", Name: "Rent", Cost: 800}})
	st.SetOwner("someone-else")
	c := New(b, b, st, notify.NewRecorder(10))
	c.runCtx = context.Background()

	u, err := b.SignUp(context.Background(), "a@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	c.handle(authEvent{user: &u})
	defer c.teardown()

	if st.Items.Len() != 0 {
		t.Fatalf("restored data of another user kept: %+v", st.Items.All())
	}
	if st.Owner() != u.UID {
		t.Fatalf("owner = %q", st.Owner())
	}
}
