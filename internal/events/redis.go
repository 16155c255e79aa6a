package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/presence/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	StatusChannel  = "presence:status"
	publishTimeout = 2 * time.Second
)

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisPublisher fans status transitions out to a Redis pub/sub channel.
// Delivery is best effort.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewRedisPublisher(client *redis.Client, logger *zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: StatusChannel,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *RedisPublisher) NotifyStatusChange(ctx context.Context, t models.StatusTransition) {
	data, err := json.Marshal(models.StatusEvent{
		UserID:         t.UserID,
		PreviousStatus: t.Previous,
		CurrentStatus:  t.Current,
		At:             p.now().UTC(),
	})
	if err != nil {
		p.logger.Error().Err(err).Int64("user_id", t.UserID).Msg("Failed to encode status event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn().Err(err).
			Int64("user_id", t.UserID).
			Str("channel", p.channel).
			Msg("Failed to publish status event")
	}
}
