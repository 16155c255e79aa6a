package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/presence/internal/service"
	"github.com/presence/internal/websocket"
	"github.com/rs/zerolog"
)

func SetupRoutes(
	router *mux.Router,
	hub *websocket.Hub,
	userService service.UserService,
	presenceService service.PresenceService,
	historyService service.HistoryService,
	metricsHandler http.Handler,
	logger *zerolog.Logger,
) {
	router.HandleFunc("/ws", HandleWebSocket(hub, userService, logger)).Methods("GET")

	apiRouter := router.PathPrefix("/api/user").Subrouter()

	apiRouter.HandleFunc("", HandleListUsers(userService, logger)).Methods("GET")
	apiRouter.HandleFunc("", HandleCreateUser(userService, logger)).Methods("POST")
	apiRouter.HandleFunc("/{id:[0-9]+}", HandleGetUser(userService, logger)).Methods("GET")
	apiRouter.HandleFunc("/{id:[0-9]+}", HandleUpdateUser(userService, logger)).Methods("PUT")
	apiRouter.HandleFunc("/{id:[0-9]+}", HandleDeleteUser(userService, logger)).Methods("DELETE")
	apiRouter.HandleFunc("/status/{id:[0-9]+}", HandleUpdateStatus(presenceService, logger)).Methods("PUT")
	apiRouter.HandleFunc("/status/{id:[0-9]+}/expiry", HandlePendingExpiry(userService, presenceService, logger)).Methods("GET")
	apiRouter.HandleFunc("/status/{id:[0-9]+}/history", HandleStatusHistory(historyService, logger)).Methods("GET")

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}
	router.HandleFunc("/health", healthCheck).Methods("GET")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
