package models

import "time"

const (
	MessageTypeStatusUpdate = "status_update"
	MessageTypeHeartbeat    = "heartbeat"
	MessageTypeSystem       = "system"
)

// Message is a frame exchanged with websocket clients.
type Message struct {
	Type      string         `json:"type"`
	UserID    int64          `json:"user_id,omitempty"`
	Previous  PresenceStatus `json:"previous_status,omitempty"`
	Status    PresenceStatus `json:"status,omitempty"`
	Content   string         `json:"content,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// StatusEvent records one transition. It is published to external
// subscribers and kept in the status history.
type StatusEvent struct {
	ID             int64          `json:"id,omitempty"`
	UserID         int64          `json:"userId"`
	PreviousStatus PresenceStatus `json:"previousStatus"`
	CurrentStatus  PresenceStatus `json:"currentStatus"`
	At             time.Time      `json:"at"`
}
