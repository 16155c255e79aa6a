package service

import (
	"context"
	"errors"
	"time"

	"github.com/presence/internal/keylock"
	"github.com/presence/internal/metrics"
	"github.com/presence/internal/models"
	"github.com/presence/internal/repository"
	"github.com/presence/internal/scheduler"
	"github.com/presence/internal/validation"
	"github.com/rs/zerolog"
)

const (
	DefaultAwayDelay = 5 * time.Minute

	expiryStoreTimeout = 5 * time.Second
)

// ExpiryScheduler is the subset of *scheduler.Registry the presence policy
// drives.
type ExpiryScheduler interface {
	Schedule(userID int64, delay time.Duration, callback scheduler.Callback) (scheduler.Entry, error)
	Cancel(userID int64) bool
	CancelAll() int
	Lookup(userID int64) (scheduler.Entry, bool)
}

// StatusNotifier observes committed transitions. Implementations must not
// block for long: they run while the user's transition lock is held.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, t models.StatusTransition)
}

type PresenceService interface {
	UpdateStatus(ctx context.Context, userID int64, requested string) (*models.StatusTransition, error)
	PendingExpiry(userID int64) (scheduler.Entry, bool)
	ForgetUser(userID int64)
	SetAllOffline(ctx context.Context) error
}

type presenceService struct {
	repo      repository.UserRepository
	timers    ExpiryScheduler
	awayDelay time.Duration
	locks     *keylock.Map[int64]
	notifiers []StatusNotifier
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
}

func NewPresenceService(
	repo repository.UserRepository,
	timers ExpiryScheduler,
	awayDelay time.Duration,
	m *metrics.Metrics,
	logger *zerolog.Logger,
	notifiers ...StatusNotifier,
) PresenceService {
	if awayDelay < 0 {
		awayDelay = DefaultAwayDelay
	}
	return &presenceService{
		repo:      repo,
		timers:    timers,
		awayDelay: awayDelay,
		locks:     keylock.New[int64](),
		notifiers: notifiers,
		metrics:   m,
		logger:    logger,
	}
}

// UpdateStatus stores the requested status and adjusts the user's away timer
// to match. Requests for the same user are applied one at a time.
func (s *presenceService) UpdateStatus(ctx context.Context, userID int64, requested string) (*models.StatusTransition, error) {
	status, err := validation.Status(requested)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, user, status)
}

// transition must be called with the user's lock held.
func (s *presenceService) transition(ctx context.Context, user *models.User, status models.PresenceStatus) (*models.StatusTransition, error) {
	if err := s.repo.SetStatus(ctx, user.ID, status); err != nil {
		return nil, err
	}

	if err := s.applyTimerPolicy(user.ID, status); err != nil {
		if rbErr := s.repo.SetStatus(ctx, user.ID, user.Status); rbErr != nil {
			s.logger.Error().Err(rbErr).
				Int64("user_id", user.ID).
				Str("status", user.Status.String()).
				Msg("Failed to restore status after scheduling error")
		}
		return nil, err
	}

	t := models.StatusTransition{
		UserID:   user.ID,
		Previous: user.Status,
		Current:  status,
	}
	s.metrics.Transitions.WithLabelValues(t.Previous.String(), t.Current.String()).Inc()
	s.logger.Info().
		Int64("user_id", t.UserID).
		Str("previous", t.Previous.String()).
		Str("status", t.Current.String()).
		Msg("User status updated")

	for _, n := range s.notifiers {
		n.NotifyStatusChange(ctx, t)
	}
	return &t, nil
}

func (s *presenceService) applyTimerPolicy(userID int64, status models.PresenceStatus) error {
	switch status {
	case models.StatusOnline:
		task := NewExpiryTask(userID, s.awayDelay)
		if _, err := s.timers.Schedule(task.UserID, task.Delay, s.expiryCallback(task)); err != nil {
			return err
		}
		s.metrics.TimersScheduled.Inc()
	case models.StatusOffline, models.StatusAway:
		if s.timers.Cancel(userID) {
			s.metrics.TimersCancelled.Inc()
		}
	}
	return nil
}

func (s *presenceService) expiryCallback(task ExpiryTask) scheduler.Callback {
	return func(ctx context.Context, userID int64, entry scheduler.Entry) {
		s.expire(ctx, task, entry)
	}
}

// expire applies a fired task. The user may have been deleted, set to another
// status or scheduled again since the timer was armed; those cases are no-ops.
func (s *presenceService) expire(ctx context.Context, task ExpiryTask, entry scheduler.Entry) {
	ctx, cancel := context.WithTimeout(ctx, expiryStoreTimeout)
	defer cancel()

	unlock := s.locks.Lock(task.UserID)
	defer unlock()

	log := s.logger.With().
		Int64("user_id", task.UserID).
		Uint64("generation", entry.Generation).
		Logger()

	// a fired entry is gone from the registry, so anything live is newer
	if _, ok := s.timers.Lookup(task.UserID); ok {
		s.skipExpiry(&log, "superseded")
		return
	}

	user, err := s.repo.GetByID(ctx, task.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.skipExpiry(&log, "user_deleted")
			return
		}
		log.Error().Err(err).Msg("Failed to load user for expiry")
		s.skipExpiry(&log, "store_error")
		return
	}
	if user.Status != models.StatusOnline {
		s.skipExpiry(&log, "not_online")
		return
	}

	if _, err := s.transition(ctx, user, task.Target); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.skipExpiry(&log, "user_deleted")
			return
		}
		log.Error().Err(err).Msg("Failed to expire user status")
		s.skipExpiry(&log, "store_error")
		return
	}
	s.metrics.Expirations.Inc()
}

func (s *presenceService) skipExpiry(log *zerolog.Logger, reason string) {
	s.metrics.ExpirySkipped.WithLabelValues(reason).Inc()
	log.Debug().Str("reason", reason).Msg("Expiry skipped")
}

func (s *presenceService) PendingExpiry(userID int64) (scheduler.Entry, bool) {
	return s.timers.Lookup(userID)
}

// ForgetUser drops any pending timer for a deleted user.
func (s *presenceService) ForgetUser(userID int64) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if s.timers.Cancel(userID) {
		s.metrics.TimersCancelled.Inc()
	}
}

// SetAllOffline cancels every timer and marks every user OFFLINE. It is meant
// for shutdown, after inbound traffic has stopped.
func (s *presenceService) SetAllOffline(ctx context.Context) error {
	cancelled := s.timers.CancelAll()
	updated, err := s.repo.SetAllOffline(ctx)
	if err != nil {
		return err
	}
	s.logger.Info().
		Int("timers_cancelled", cancelled).
		Int64("users_updated", updated).
		Msg("All users set offline")
	return nil
}
