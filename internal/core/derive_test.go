package core

import (
	"math"
	"testing"
)

func costs(items []Item) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.Cost
	}
	return out
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestTotals(t *testing.T) {
	if got := TotalCost(nil, nil); got != 0 {
		t.Fatalf("empty total = %v, want 0", got)
	}

	items := []Item{{ID: "1", Cost: 10.5}, {ID: "2", Cost: 4.25}, {ID: "3", Cost: math.NaN()}}
	others := []OtherCost{{ID: "a", Amount: 3}, {ID: "b"}}

	if got := TotalItemsCost(items); got != 14.75 {
		t.Errorf("TotalItemsCost = %v, want 14.75", got)
	}
	if got := TotalOtherCosts(others); got != 3 {
		t.Errorf("TotalOtherCosts = %v, want 3", got)
	}
	if got := TotalCost(items, others); got != 17.75 {
		t.Errorf("TotalCost = %v, want 17.75", got)
	}
}

func TestTotalsAreNotClamped(t *testing.T) {
	items := []Item{{Cost: -5}, {Cost: 2.005}}
	if got := TotalItemsCost(items); got != -5+2.005 {
		t.Fatalf("TotalItemsCost = %v, want %v", got, -5+2.005)
	}
}

func TestSortItems(t *testing.T) {
	input := []Item{{ID: "x", Name: "b", Cost: 30}, {ID: "y", Name: "a", Cost: 10}, {ID: "z", Name: "C", Cost: 20}}

	tests := []struct {
		name      string
		mode      SortMode
		wantCosts []float64
	}{
		{"cost ascending", SortCostAsc, []float64{10, 20, 30}},
		{"cost descending", SortCostDesc, []float64{30, 20, 10}},
		{"none keeps input order", SortNone, []float64{30, 10, 20}},
		{"name", SortName, []float64{10, 30, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := costs(SortItems(input, tt.mode))
			for i := range tt.wantCosts {
				if got[i] != tt.wantCosts[i] {
					t.Fatalf("SortItems(%s) = %v, want %v", tt.mode, got, tt.wantCosts)
				}
			}
		})
	}

	if got := costs(input); got[0] != 30 || got[1] != 10 || got[2] != 20 {
		t.Fatalf("input was mutated: %v", got)
	}
}

func TestSortItemsByNameSimple(t *testing.T) {
	got := names(SortItems([]Item{{Name: "b"}, {Name: "a"}}, SortName))
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("name sort = %v, want [a b]", got)
	}
}

func TestSortItemsIsStable(t *testing.T) {
	input := []Item{{ID: "1", Cost: 5}, {ID: "2", Cost: 1}, {ID: "3", Cost: 5}, {ID: "4", Cost: 1}}
	got := SortItems(input, SortCostAsc)
	want := []string{"2", "4", "1", "3"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s (got %v)", i, got[i].ID, id, got)
		}
	}
}

func TestFilterItemsInclusive(t *testing.T) {
	got := costs(FilterItems([]Item{{Cost: 10}, {Cost: 20}, {Cost: 30}}, 20))
	if len(got) != 2 || got[0] != 20 || got[1] != 30 {
		t.Fatalf("FilterItems = %v, want [20 30]", got)
	}
}

func TestItemsView(t *testing.T) {
	input := []Item{{Name: "tea", Cost: 3}, {Name: "rent", Cost: 900}, {Name: "desk", Cost: 120}}
	got := names(ItemsView(input, SortCostDesc, 100))
	if len(got) != 2 || got[0] != "rent" || got[1] != "desk" {
		t.Fatalf("ItemsView = %v", got)
	}
}

func TestParseSortMode(t *testing.T) {
	for _, s := range []string{"", "none", "cost-asc", "cost-desc", "name"} {
		if _, err := ParseSortMode(s); err != nil {
			t.Errorf("ParseSortMode(%q) unexpected error: %v", s, err)
		}
	}
	if m, _ := ParseSortMode(""); m != SortNone {
		t.Errorf("empty mode = %q, want none", m)
	}
	if _, err := ParseSortMode("price"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestChartSeries(t *testing.T) {
	if _, ok := ChartSeries(0, 0); ok {
		t.Fatal("chart must be suppressed when the total is zero")
	}

	s, ok := ChartSeries(12, 0)
	if !ok {
		t.Fatal("expected a chart when one category is non-zero")
	}
	if len(s.Labels) != 2 || s.Labels[0] != LabelItems || s.Labels[1] != LabelOtherCosts {
		t.Errorf("labels = %v", s.Labels)
	}
	if s.Data[0] != 12 || s.Data[1] != 0 {
		t.Errorf("data = %v", s.Data)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Item{{Cost: 10}}, []OtherCost{{Amount: 2.5}})
	if s.ItemsTotal != 10 || s.OtherTotal != 2.5 || s.Total != 12.5 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Chart == nil {
		t.Fatal("expected chart")
	}

	if empty := Summarize(nil, nil); empty.Chart != nil {
		t.Fatalf("expected no chart for empty state, got %+v", empty.Chart)
	}
}
