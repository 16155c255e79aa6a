package models

import (
	"errors"
	"fmt"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "ONLINE"
	StatusOffline PresenceStatus = "OFFLINE"
	StatusAway    PresenceStatus = "AWAY"
)

var ErrInvalidStatus = errors.New("invalid user status")

// ParseStatus accepts only the exact upper-case names.
func ParseStatus(s string) (PresenceStatus, error) {
	switch status := PresenceStatus(s); status {
	case StatusOnline, StatusOffline, StatusAway:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s PresenceStatus) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s PresenceStatus) String() string {
	return string(s)
}

// StatusTransition is the outcome of a status update.
type StatusTransition struct {
	UserID   int64          `json:"userId"`
	Previous PresenceStatus `json:"previousUserStatus"`
	Current  PresenceStatus `json:"currentUserStatus"`
}

type StatusUpdate struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}
