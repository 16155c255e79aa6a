package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/presence/internal/models"
	"github.com/presence/internal/service"
	"github.com/rs/zerolog"
)

func HandleListUsers(userService service.UserService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userService.ListUsers(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if users == nil {
			users = []*models.User{}
		}
		writeJSON(w, logger, http.StatusOK, users)
	}
}

func HandleGetUser(userService service.UserService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user id")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid user id"})
			return
		}

		user, err := userService.GetUser(r.Context(), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, user)
	}
}

func HandleCreateUser(userService service.UserService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn().Err(err).Msg("Invalid user payload")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
			return
		}

		user, err := userService.CreateUser(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, models.CreateUserResponse{UserID: user.ID})
	}
}

// HandleUpdateUser reads name, email and phoneNumber from the query string.
// Parameters that are absent are left unchanged.
func HandleUpdateUser(userService service.UserService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user id")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid user id"})
			return
		}

		query := r.URL.Query()
		optional := func(key string) *string {
			if !query.Has(key) {
				return nil
			}
			v := query.Get(key)
			return &v
		}

		user, err := userService.UpdateUser(r.Context(), id, models.UpdateUserRequest{
			Name:        optional("name"),
			Email:       optional("email"),
			PhoneNumber: optional("phoneNumber"),
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, user)
	}
}

func HandleDeleteUser(userService service.UserService, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid user id")
			writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "Invalid user id"})
			return
		}

		if err := userService.DeleteUser(r.Context(), id); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
