package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"costtracker/internal/remote"
)

func nextSnapshot(t *testing.T, sub *remote.Subscription) remote.Snapshot {
	t.Helper()
	select {
	case s, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("snapshots closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return remote.Snapshot{}
}

// waitFor drains snapshots until one has n documents.
func waitFor(t *testing.T, sub *remote.Subscription, n int) remote.Snapshot {
	t.Helper()
	for {
		s := nextSnapshot(t, sub)
		if len(s.Documents) == n {
			return s
		}
	}
}

func signedUp(t *testing.T, b *Backend, email string) string {
	t.Helper()
	u, err := b.SignUp(context.Background(), email, "secret123")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	return u.UID
}

func TestCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	b := New()
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time { return fixed })
	uid := signedUp(t, b, "a@example.com")

	sub, err := b.Subscribe(ctx, uid, remote.Items)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Stop()

	if s := nextSnapshot(t, sub); len(s.Documents) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d docs", len(s.Documents))
	}

	id, rev, err := b.Create(ctx, uid, remote.Items, remote.Fields{Label: "Rent", Value: 800})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s := waitFor(t, sub, 1)
	if s.Revision != rev {
		t.Errorf("snapshot revision = %d, want %d", s.Revision, rev)
	}
	doc := s.Documents[0]
	if doc.ID != id || doc.Label != "Rent" || doc.Value != 800 {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.CreatedAt != "2024-05-01T10:00:00.000Z" {
		t.Errorf("CreatedAt = %q", doc.CreatedAt)
	}

	rev2, err := b.Update(ctx, uid, remote.Items, id, remote.Fields{Label: "Rent", Value: 850})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rev2 <= rev {
		t.Errorf("revision did not advance: %d -> %d", rev, rev2)
	}
	if got := b.Documents(uid, remote.Items)[0].Value; got != 850 {
		t.Errorf("updated value = %v", got)
	}

	if _, err := b.Delete(ctx, uid, remote.Items, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(t, sub, 0)
}

func TestUpdateMissingFails(t *testing.T) {
	b := New()
	uid := signedUp(t, b, "a@example.com")
	if _, err := b.Update(context.Background(), uid, remote.Items, "nope", remote.Fields{Label: "x"}); err == nil {
		t.Fatal("expected error updating a missing document")
	}
	if _, err := b.Delete(context.Background(), uid, remote.Items, "nope"); err != nil {
		t.Fatalf("Delete of missing document: %v", err)
	}
}

func TestWritesRequireOwner(t *testing.T) {
	ctx := context.Background()
	b := New()
	uid := signedUp(t, b, "a@example.com")
	if err := b.SignOut(ctx); err != nil {
		t.Fatal(err)
	}

	if _, _, err := b.Create(ctx, uid, remote.Items, remote.Fields{Label: "x"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if _, err := b.Subscribe(ctx, uid, remote.Items); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

func TestSignOutCutsOffListeners(t *testing.T) {
	ctx := context.Background()
	b := New()
	uid := signedUp(t, b, "a@example.com")

	sub, err := b.Subscribe(ctx, uid, remote.OtherCosts)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Stop()
	nextSnapshot(t, sub)

	if err := b.SignOut(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-sub.Errors():
		if !remote.IsPermissionRace(err) {
			t.Fatalf("expected permission race, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not cut off")
	}
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	b := New()

	if _, err := b.SignUp(ctx, "a@example.com", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := b.SignUp(ctx, "not-an-email", "secret123"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	signedUp(t, b, "a@example.com")
	if _, err := b.SignUp(ctx, "A@example.com", "secret123"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
	if _, err := b.SignIn(ctx, "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	u, err := b.SignIn(ctx, "a@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if cur, ok := b.Current(); !ok || cur.UID != u.UID {
		t.Fatalf("current user = %+v, %v", cur, ok)
	}
}

func TestFailNext(t *testing.T) {
	ctx := context.Background()
	b := New()
	uid := signedUp(t, b, "a@example.com")
	boom := errors.New("boom")

	b.FailNext(OpCreate, boom)
	if _, _, err := b.Create(ctx, uid, remote.Items, remote.Fields{Label: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if _, _, err := b.Create(ctx, uid, remote.Items, remote.Fields{Label: "x"}); err != nil {
		t.Fatalf("failure should apply once: %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	seed := "# demo accounts\ndemo@example.com secret123\nbroken-line\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_users.txt"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewFromFiles(dir)
	if _, err := b.SignIn(context.Background(), "demo@example.com", "secret123"); err != nil {
		t.Fatalf("seeded account should sign in: %v", err)
	}
}
