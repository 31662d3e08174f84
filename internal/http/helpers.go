package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"costtracker/internal/core"
)

// viewParams are the list controls of the items view.
type viewParams struct {
	Sort    core.SortMode
	MinCost float64
}

// parseViewParams reads sort and min_cost. An empty min_cost means no
// filter.
func parseViewParams(r *http.Request) (viewParams, error) {
	q := r.URL.Query()
	mode, err := core.ParseSortMode(strings.TrimSpace(q.Get("sort")))
	if err != nil {
		return viewParams{}, err
	}
	params := viewParams{Sort: mode}
	if v := strings.TrimSpace(q.Get("min_cost")); v != "" {
		minCost, err := core.ParseAmount(v)
		if err != nil {
			return viewParams{}, fmt.Errorf("min_cost: %w", err)
		}
		params.MinCost = minCost
	}
	return params, nil
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// statusFor maps an operation error to a response status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindWrite, core.KindSubscription:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
