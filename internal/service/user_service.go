package service

import (
	"context"
	"errors"

	"github.com/presence/internal/models"
	"github.com/presence/internal/repository"
	"github.com/presence/internal/validation"
	"github.com/rs/zerolog"
)

type UserService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, req models.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type userService struct {
	repo     repository.UserRepository
	presence PresenceService
	logger   *zerolog.Logger
}

func NewUserService(repo repository.UserRepository, presence PresenceService, logger *zerolog.Logger) UserService {
	return &userService{repo: repo, presence: presence, logger: logger}
}

func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAll(ctx)
}

func (s *userService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateUser stores a new user in the OFFLINE state.
func (s *userService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := validation.Name(req.Name); err != nil {
		return nil, err
	}
	if err := validation.Email(req.Email); err != nil {
		return nil, err
	}
	phone, err := validation.Phone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, 0, req.Email); err != nil {
		return nil, err
	}
	if err := s.checkPhoneFree(ctx, 0, phone); err != nil {
		return nil, err
	}

	user, err := s.repo.Save(ctx, &models.User{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: phone,
		Status:      models.StatusOffline,
	})
	if err != nil {
		return nil, takenError(err)
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("User created")
	return user, nil
}

// UpdateUser applies the non-nil fields of req. An empty name is ignored.
func (s *userService) UpdateUser(ctx context.Context, id int64, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		if err := validation.Name(*req.Name); err != nil {
			return nil, err
		}
		user.Name = *req.Name
	}

	if req.Email != nil {
		if err := validation.Email(*req.Email); err != nil {
			return nil, err
		}
		if err := s.checkEmailFree(ctx, id, *req.Email); err != nil {
			return nil, err
		}
		user.Email = *req.Email
	}

	if req.PhoneNumber != nil {
		phone, err := validation.Phone(*req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		if err := s.checkPhoneFree(ctx, id, phone); err != nil {
			return nil, err
		}
		user.PhoneNumber = phone
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, takenError(err)
	}
	return saved, nil
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.presence.ForgetUser(id)
	s.logger.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}

func (s *userService) checkEmailFree(ctx context.Context, self int64, email string) error {
	owner, err := s.repo.GetByEmail(ctx, email)
	return takenByOther(owner, err, self, validation.MsgEmailTaken)
}

func (s *userService) checkPhoneFree(ctx context.Context, self int64, phone string) error {
	owner, err := s.repo.GetByPhone(ctx, phone)
	return takenByOther(owner, err, self, validation.MsgPhoneTaken)
}

func takenByOther(owner *models.User, lookupErr error, self int64, takenMsg string) error {
	if errors.Is(lookupErr, repository.ErrUserNotFound) {
		return nil
	}
	if lookupErr != nil {
		return lookupErr
	}
	if owner.ID == self {
		return nil
	}
	return validation.NewError(takenMsg)
}

// takenError turns a uniqueness clash caught by the store into the same
// client-facing error the pre-checks return.
func takenError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return validation.NewError(validation.MsgEmailTaken)
	case errors.Is(err, repository.ErrPhoneTaken):
		return validation.NewError(validation.MsgPhoneTaken)
	}
	return err
}
