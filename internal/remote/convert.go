package remote

import "costtracker/internal/core"

func ItemFromDocument(d Document) core.Item {
	return core.Item{ID: d.ID, Name: d.Label, Cost: d.Value, CreatedAt: d.CreatedAt}
}

func OtherCostFromDocument(d Document) core.OtherCost {
	return core.OtherCost{ID: d.ID, Description: d.Label, Amount: d.Value, CreatedAt: d.CreatedAt}
}

// ItemsFromSnapshot decodes an items snapshot, preserving order.
func ItemsFromSnapshot(s Snapshot) []core.Item {
	out := make([]core.Item, len(s.Documents))
	for i, d := range s.Documents {
		out[i] = ItemFromDocument(d)
	}
	return out
}

// OtherCostsFromSnapshot decodes an other-costs snapshot, preserving order.
func OtherCostsFromSnapshot(s Snapshot) []core.OtherCost {
	out := make([]core.OtherCost, len(s.Documents))
	for i, d := range s.Documents {
		out[i] = OtherCostFromDocument(d)
	}
	return out
}

// NumberField reads a numeric document field. Missing or non-numeric values
// read as 0.
func NumberField(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	default:
		return 0
	}
}
