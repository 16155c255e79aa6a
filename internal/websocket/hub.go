package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/presence/internal/models"
	"github.com/presence/internal/service"
	"github.com/rs/zerolog"
)

const (
	broadcastBuffer = 256
	statusTimeout   = 5 * time.Second
)

// Hub tracks one connection per user. Connecting sets the user ONLINE,
// a heartbeat refreshes the away timer and disconnecting sets OFFLINE.
type Hub struct {
	Clients      map[int64]*Client
	Register     chan *Client
	Unregister   chan *Client
	Heartbeat    chan *Client
	Broadcast    chan *models.Message
	ShutdownChan chan struct{}

	PresenceService service.PresenceService
	Logger          *zerolog.Logger

	shutdownOnce sync.Once
}

func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		Clients:      make(map[int64]*Client),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		Heartbeat:    make(chan *Client),
		Broadcast:    make(chan *models.Message, broadcastBuffer),
		ShutdownChan: make(chan struct{}),
		Logger:       logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)
		case client := <-h.Unregister:
			h.handleUnregister(client)
		case client := <-h.Heartbeat:
			h.handleHeartbeat(client)
		case message := <-h.Broadcast:
			h.handleBroadcast(message)
		case <-h.ShutdownChan:
			h.handleShutdown()
			return
		}
	}
}

// NotifyStatusChange queues a status event for every connected client. It
// never blocks; events are dropped when the queue is full.
func (h *Hub) NotifyStatusChange(_ context.Context, t models.StatusTransition) {
	msg := &models.Message{
		Type:      models.MessageTypeStatusUpdate,
		UserID:    t.UserID,
		Previous:  t.Previous,
		Status:    t.Current,
		Timestamp: time.Now(),
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.Logger.Warn().Int64("user_id", t.UserID).Msg("Broadcast queue full, dropping status event")
	}
}

func (h *Hub) handleRegister(client *Client) {
	if old, ok := h.Clients[client.UserID]; ok && old != client {
		close(old.Send)
	}
	h.Clients[client.UserID] = client
	h.setStatus(client.UserID, models.StatusOnline)
}

func (h *Hub) handleUnregister(client *Client) {
	if current, ok := h.Clients[client.UserID]; ok && current == client {
		delete(h.Clients, client.UserID)
		close(client.Send)
		h.setStatus(client.UserID, models.StatusOffline)
	}
}

func (h *Hub) handleHeartbeat(client *Client) {
	if current, ok := h.Clients[client.UserID]; ok && current == client {
		h.setStatus(client.UserID, models.StatusOnline)
	}
}

func (h *Hub) handleBroadcast(message *models.Message) {
	for id, client := range h.Clients {
		if id == message.UserID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.Logger.Warn().Int64("user_id", id).Msg("Client too slow, disconnecting")
			close(client.Send)
			delete(h.Clients, id)
			h.setStatus(id, models.StatusOffline)
		}
	}
}

func (h *Hub) setStatus(userID int64, status models.PresenceStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	if _, err := h.PresenceService.UpdateStatus(ctx, userID, status.String()); err != nil {
		h.Logger.Error().Err(err).
			Int64("user_id", userID).
			Str("status", status.String()).
			Msg("Failed to update status from connection")
	}
}

func (h *Hub) handleShutdown() {
	for id, client := range h.Clients {
		select {
		case client.Send <- &models.Message{
			Type:      models.MessageTypeSystem,
			Content:   "Server is shutting down",
			Timestamp: time.Now(),
		}:
		default:
		}
		close(client.Send)
		delete(h.Clients, id)
	}
}

// Shutdown stops Run and closes every client. Calling it again does nothing.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.ShutdownChan) })
}
