package core

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortMode selects the ordering of the items view.
type SortMode string

const (
	SortNone     SortMode = "none"
	SortCostAsc  SortMode = "cost-asc"
	SortCostDesc SortMode = "cost-desc"
	SortName     SortMode = "name"
)

// Chart labels and colors for the two-category breakdown.
const (
	LabelItems      = "Items"
	LabelOtherCosts = "Other Costs"
	ColorItems      = "#36A2EB"
	ColorOtherCosts = "#FF6384"
)

// ParseSortMode maps the selector value to a SortMode. An empty value means
// SortNone.
func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(s); m {
	case "":
		return SortNone, nil
	case SortNone, SortCostAsc, SortCostDesc, SortName:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// numeric treats a missing (NaN) value as 0.
func numeric(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func TotalItemsCost(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += numeric(it.Cost)
	}
	return sum
}

func TotalOtherCosts(costs []OtherCost) float64 {
	var sum float64
	for _, c := range costs {
		sum += numeric(c.Amount)
	}
	return sum
}

func TotalCost(items []Item, costs []OtherCost) float64 {
	return TotalItemsCost(items) + TotalOtherCosts(costs)
}

// SortItems returns a sorted copy of items. The sort is stable and the input
// is never modified.
func SortItems(items []Item, mode SortMode) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	switch mode {
	case SortCostAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return numeric(out[i].Cost) < numeric(out[j].Cost)
		})
	case SortCostDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return numeric(out[i].Cost) > numeric(out[j].Cost)
		})
	case SortName:
		// Collators keep internal buffers; one per call.
		c := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	}
	return out
}

// FilterItems keeps items whose cost is at least minCost.
func FilterItems(items []Item, minCost float64) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if numeric(it.Cost) >= minCost {
			out = append(out, it)
		}
	}
	return out
}

// ItemsView sorts then filters, as the item list is displayed.
func ItemsView(items []Item, mode SortMode, minCost float64) []Item {
	return FilterItems(SortItems(items, mode), minCost)
}

// Series is the two-category breakdown fed to the pie chart.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
	Colors []string  `json:"colors"`
}

// ChartSeries returns the breakdown, or false when there is nothing to chart.
// Both categories are present even if one of them is zero.
func ChartSeries(itemsTotal, otherTotal float64) (Series, bool) {
	if itemsTotal+otherTotal <= 0 {
		return Series{}, false
	}
	return Series{
		Labels: []string{LabelItems, LabelOtherCosts},
		Data:   []float64{itemsTotal, otherTotal},
		Colors: []string{ColorItems, ColorOtherCosts},
	}, true
}

// Summary bundles every aggregate the tracker view shows.
type Summary struct {
	ItemsTotal float64 `json:"items_total"`
	OtherTotal float64 `json:"other_total"`
	Total      float64 `json:"total"`
	Chart      *Series `json:"chart,omitempty"`
}

func Summarize(items []Item, costs []OtherCost) Summary {
	s := Summary{
		ItemsTotal: TotalItemsCost(items),
		OtherTotal: TotalOtherCosts(costs),
	}
	s.Total = s.ItemsTotal + s.OtherTotal
	if series, ok := ChartSeries(s.ItemsTotal, s.OtherTotal); ok {
		s.Chart = &series
	}
	return s
}
