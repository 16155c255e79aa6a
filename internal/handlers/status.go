package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/presence/internal/service"
	"github.com/rs/zerolog"
)

type expiryResponse struct {
	UserID    int64      `json:"userId"`
	Pending   bool       `json:"pending"`
	FireAt    *time.Time `json:"fireAt,omitempty"`
	Remaining string     `json:"remaining,omitempty"`
}

func HandleUpdateStatus(presenceService service.PresenceService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user id")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid user id"})
			return
		}

		transition, err := presenceService.UpdateStatus(r.Context(), id, r.URL.Query().Get("userStatus"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, transition)
	}
}

func HandlePendingExpiry(userService service.UserService, presenceService service.PresenceService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user id")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid user id"})
			return
		}

		if _, err := userService.GetUser(r.Context(), id); err != nil {
			writeError(w, logger, err)
			return
		}

		resp := expiryResponse{UserID: id}
		if entry, ok := presenceService.PendingExpiry(id); ok {
			resp.Pending = true
			resp.FireAt = &entry.FireAt
			resp.Remaining = time.Until(entry.FireAt).Round(time.Second).String()
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

func HandleStatusHistory(historyService service.HistoryService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user id")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid user id"})
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if limit, err = strconv.Atoi(raw); err != nil {
				writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid limit"})
				return
			}
		}

		events, err := historyService.History(r.Context(), id, limit)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, events)
	}
}
