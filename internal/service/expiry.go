package service

import (
	"time"

	"github.com/presence/internal/models"
)

// ExpiryTask is the deferred "go AWAY" action for one user.
type ExpiryTask struct {
	UserID int64
	Target models.PresenceStatus
	Delay  time.Duration
}

func NewExpiryTask(userID int64, delay time.Duration) ExpiryTask {
	return ExpiryTask{
		UserID: userID,
		Target: models.StatusAway,
		Delay:  delay,
	}
}
