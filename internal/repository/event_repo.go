package repository

import (
	"context"
	"database/sql"
	"sync"

	"github.com/presence/internal/models"
	"github.com/rs/zerolog"
)

// StatusEventRepository keeps an append-only log of presence transitions.
type StatusEventRepository interface {
	Create(ctx context.Context, event *models.StatusEvent) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.StatusEvent, error)
}

const eventSchema = `
	CREATE TABLE IF NOT EXISTS status_events (
		id              BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id         BIGINT      NOT NULL,
		previous_status VARCHAR(16) NOT NULL,
		current_status  VARCHAR(16) NOT NULL,
		created_at      DATETIME(3) NOT NULL,
		INDEX idx_status_events_user (user_id, id)
	)
`

type statusEventRepository struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewStatusEventRepository(db *sql.DB, logger *zerolog.Logger) StatusEventRepository {
	return &statusEventRepository{db: db, logger: logger}
}

func (r *statusEventRepository) Create(ctx context.Context, event *models.StatusEvent) (int64, error) {
	query := `
		INSERT INTO status_events (user_id, previous_status, current_status, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		event.UserID,
		event.PreviousStatus,
		event.CurrentStatus,
		event.At,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", event.UserID).Msg("Failed to record status event")
		return 0, err
	}
	return result.LastInsertId()
}

// ListByUser returns the user's most recent events, newest first.
func (r *statusEventRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.StatusEvent, error) {
	query := `
		SELECT id, user_id, previous_status, current_status, created_at
		FROM status_events
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to get status events")
		return nil, err
	}
	defer rows.Close()

	events := []*models.StatusEvent{}
	for rows.Next() {
		var event models.StatusEvent
		err := rows.Scan(&event.ID, &event.UserID, &event.PreviousStatus, &event.CurrentStatus, &event.At)
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to scan status event row")
			continue
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

type memoryStatusEventRepository struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64][]models.StatusEvent
}

func NewMemoryStatusEventRepository() StatusEventRepository {
	return &memoryStatusEventRepository{events: make(map[int64][]models.StatusEvent)}
}

func (r *memoryStatusEventRepository) Create(ctx context.Context, event *models.StatusEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := *event
	stored.ID = r.nextID
	r.events[event.UserID] = append(r.events[event.UserID], stored)
	return stored.ID, nil
}

func (r *memoryStatusEventRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.StatusEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.events[userID]
	events := []*models.StatusEvent{}
	for i := len(log) - 1; i >= 0 && len(events) < limit; i-- {
		event := log[i]
		events = append(events, &event)
	}
	return events, nil
}
