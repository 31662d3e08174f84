package amqp

import (
	"encoding/json"
	"time"

	"costtracker/internal/notify"
)

// NotificationMessage is the broker form of a user-facing notification.
type NotificationMessage struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewNotificationMessage(n notify.Notification) *NotificationMessage {
	ts := n.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &NotificationMessage{
		Title:       n.Title,
		Description: n.Description,
		Status:      string(n.Status),
		DurationMs:  n.DurationMillis(),
		Timestamp:   ts,
	}
}

// Notification converts the message back for local delivery.
func (m *NotificationMessage) Notification() notify.Notification {
	return notify.Notification{
		Title:       m.Title,
		Description: m.Description,
		Status:      notify.Status(m.Status),
		Duration:    time.Duration(m.DurationMs) * time.Millisecond,
		At:          m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
