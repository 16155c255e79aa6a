package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/presence/internal/models"
	"github.com/presence/internal/repository"
	"github.com/presence/internal/validation"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *zerolog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps service errors onto HTTP statuses. Anything unrecognized is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	switch {
	case validation.IsValidationError(err):
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidStatus):
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: validation.MsgStatusInvalid})
	case errors.Is(err, repository.ErrUserNotFound):
		writeJSON(w, logger, http.StatusNotFound, errorResponse{Error: "User not found!"})
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeJSON(w, logger, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func LoggingMiddleware(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}
