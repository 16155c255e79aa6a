package service

import (
	"context"
	"time"

	"github.com/presence/internal/models"
	"github.com/presence/internal/repository"
	"github.com/rs/zerolog"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	recordTimeout = 2 * time.Second
)

// HistoryService records every committed transition and serves them back per
// user. It is registered with the presence service as a StatusNotifier.
type HistoryService interface {
	StatusNotifier
	History(ctx context.Context, userID int64, limit int) ([]*models.StatusEvent, error)
}

type historyService struct {
	events repository.StatusEventRepository
	users  repository.UserRepository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewHistoryService(events repository.StatusEventRepository, users repository.UserRepository, logger *zerolog.Logger) HistoryService {
	return &historyService{
		events: events,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// NotifyStatusChange stores the transition. A failed write is logged and
// otherwise ignored; the status change itself has already been committed.
func (s *historyService) NotifyStatusChange(ctx context.Context, t models.StatusTransition) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	_, err := s.events.Create(ctx, &models.StatusEvent{
		UserID:         t.UserID,
		PreviousStatus: t.Previous,
		CurrentStatus:  t.Current,
		At:             s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", t.UserID).Msg("Status event not recorded")
	}
}

// History returns up to limit events for an existing user, newest first.
// Non-positive limits use DefaultHistoryLimit; larger ones are capped.
func (s *historyService) History(ctx context.Context, userID int64, limit int) ([]*models.StatusEvent, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.events.ListByUser(ctx, userID, limit)
}
