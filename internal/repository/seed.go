package repository

import (
	"context"
	"errors"

	"github.com/presence/internal/models"
	"github.com/rs/zerolog"
)

var defaultUsers = []models.User{
	{Name: "Alex", Email: "alex@yandex.ru", PhoneNumber: "+79033333333", Status: models.StatusOffline},
	{Name: "Maria", Email: "maria@gmail.com", PhoneNumber: "+79033333334", Status: models.StatusOffline},
}

// SeedDefaultUsers inserts the demo users whose email is not taken yet.
func SeedDefaultUsers(ctx context.Context, repo UserRepository, logger *zerolog.Logger) error {
	for _, u := range defaultUsers {
		_, err := repo.GetByEmail(ctx, u.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		user := u
		saved, err := repo.Save(ctx, &user)
		if err != nil {
			return err
		}
		logger.Info().Int64("user_id", saved.ID).Str("email", saved.Email).Msg("Seeded user")
	}
	return nil
}
