package events

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/presence/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPublishFailureIsLoggedNotPropagated(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	p := NewRedisPublisher(client, &logger)
	p.NotifyStatusChange(context.Background(), models.StatusTransition{
		UserID:   42,
		Previous: models.StatusOnline,
		Current:  models.StatusAway,
	})

	assert.Contains(t, buf.String(), "Failed to publish status event")
	assert.Contains(t, buf.String(), `"user_id":42`)
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}
