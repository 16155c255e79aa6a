package handlers

import (
	"net/http"
	"strconv"

	"github.com/presence/internal/service"
	"github.com/presence/internal/websocket"
	"github.com/rs/zerolog"
)

func HandleWebSocket(hub *websocket.Hub, userService service.UserService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user_id parameter")
			http.Error(w, "Invalid user_id parameter", http.StatusBadRequest)
			return
		}

		if _, err := userService.GetUser(r.Context(), userID); err != nil {
			writeError(w, logger, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := websocket.NewClient(hub, conn, userID)
		select {
		case hub.Register <- client:
		case <-hub.ShutdownChan:
			logger.Warn().Int64("user_id", userID).Msg("Hub is shut down, closing connection")
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
