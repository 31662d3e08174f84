package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"costtracker/internal/core"
)

func TestFailureUsesBackendMessage(t *testing.T) {
	err := core.NewError(core.KindWrite, "add item", errors.New("quota exceeded"))
	n := Failure("Error", err)
	if n.Description != "quota exceeded" || n.Status != StatusError {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.DurationMillis() != 5000 {
		t.Errorf("duration = %d", n.DurationMillis())
	}
	if Success("Item added!").DurationMillis() != 3000 {
		t.Error("success toasts last 3000ms")
	}
}

func TestSendCollectsAndForwards(t *testing.T) {
	rec := NewRecorder(10)
	var forwarded int
	notifier := Multi{rec, Func(func(context.Context, Notification) { forwarded++ }), nil}

	ctx, col := WithCollector(context.Background())
	Send(ctx, notifier, Success("Cost added!"))
	Send(context.Background(), notifier, Success("Cost deleted!"))

	if got := col.All(); len(got) != 1 || got[0].Title != "Cost added!" {
		t.Fatalf("collector = %+v", got)
	}
	if last, ok := col.Last(); !ok || last.Title != "Cost added!" {
		t.Errorf("Last = %+v, %v", last, ok)
	}
	if forwarded != 2 || len(rec.Recent()) != 2 {
		t.Errorf("forwarded=%d recorded=%d", forwarded, len(rec.Recent()))
	}
}

func TestRecorderKeepsMostRecent(t *testing.T) {
	rec := NewRecorder(3)
	for i := 0; i < 5; i++ {
		rec.Notify(context.Background(), Success(fmt.Sprint(i)))
	}
	got := rec.Recent()
	if len(got) != 3 || got[0].Title != "2" || got[2].Title != "4" {
		t.Fatalf("recent = %+v", got)
	}
}
