package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form timestamps take once they reach local state.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	// User is the signed-in identity. It lives only for the session.
	User struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
	}

	Item struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Cost      float64 `json:"cost"`
		CreatedAt string  `json:"timestamp,omitempty"`
	}

	OtherCost struct {
		ID          string  `json:"id"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		CreatedAt   string  `json:"timestamp,omitempty"`
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Key returns the record id.
func (i Item) Key() string { return i.ID }

// Key returns the record id.
func (c OtherCost) Key() string { return c.ID }

func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if math.IsNaN(i.Cost) || math.IsInf(i.Cost, 0) {
		return ErrInvalidAmount
	}
	return nil
}

func (c OtherCost) Validate() error {
	if strings.TrimSpace(c.Description) == "" {
		return ErrEmptyDescription
	}
	if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}

// FormatTimestamp renders t the way local state stores creation instants.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}
