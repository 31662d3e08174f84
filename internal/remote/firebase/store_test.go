package firebase

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"costtracker/internal/remote"
)

func TestClassify(t *testing.T) {
	denied := classify(status.Error(codes.PermissionDenied, "Missing or insufficient permissions."))
	if !remote.IsPermissionRace(denied) {
		t.Fatalf("expected permission race, got %v", denied)
	}
	if denied.Error() != "Missing or insufficient permissions." {
		t.Errorf("unexpected message %q", denied.Error())
	}

	unavailable := classify(status.Error(codes.Unavailable, "backend down"))
	if remote.IsPermissionRace(unavailable) {
		t.Fatal("unavailable must not be treated as a permission race")
	}
}

func TestAPIError(t *testing.T) {
	err := apiError(&googleapi.Error{Code: http.StatusBadRequest, Message: "EMAIL_EXISTS"})
	if err.Error() != "EMAIL_EXISTS" {
		t.Errorf("got %q, want EMAIL_EXISTS", err.Error())
	}

	plain := errors.New("dial tcp: timeout")
	if got := apiError(plain); got != plain {
		t.Errorf("non-API errors should pass through, got %v", got)
	}
}

func TestAuthorize(t *testing.T) {
	b := &Backend{subs: make(map[string]map[*listener]struct{})}
	if err := b.authorize("u1"); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied while signed out, got %v", err)
	}
}

func TestDocumentFromData(t *testing.T) {
	created := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		data map[string]any
		want remote.Document
	}{
		{
			name: "complete document",
			data: map[string]any{"name": "Rent", "cost": int64(800), remote.TimestampField: created},
			want: remote.Document{ID: "d1", Label: "Rent", Value: 800, CreatedAt: "2026-01-01T09:30:00.000Z"},
		},
		{
			name: "missing value",
			data: map[string]any{"name": "Rent", remote.TimestampField: created},
			want: remote.Document{ID: "d1", Label: "Rent", CreatedAt: "2026-01-01T09:30:00.000Z"},
		},
		{
			name: "missing timestamp",
			data: map[string]any{"name": "Rent", "cost": 12.5},
			want: remote.Document{ID: "d1", Label: "Rent", Value: 12.5},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := documentFromData("d1", tc.data, remote.Items); got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestSortByCreationPlacesUndatedLast(t *testing.T) {
	docs := []remote.Document{
		{ID: "undated"},
		{ID: "late", CreatedAt: "2026-01-02T00:00:00.000Z"},
		{ID: "early", CreatedAt: "2026-01-01T00:00:00.000Z"},
	}
	sortByCreation(docs)

	var got []string
	for _, d := range docs {
		got = append(got, d.ID)
	}
	want := []string{"early", "late", "undated"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
