package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/presence/internal/metrics"
	"github.com/presence/internal/models"
	"github.com/presence/internal/repository"
	"github.com/presence/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (UserService, *presenceFixture) {
	t.Helper()
	f := newPresenceFixture(t)
	logger := zerolog.Nop()
	return NewUserService(f.repo, f.svc, &logger), f
}

func strPtr(s string) *string { return &s }

func TestCreateUserStartsOffline(t *testing.T) {
	users, _ := newUserFixture(t)

	u, err := users.CreateUser(context.Background(), models.CreateUserRequest{
		Name:        "Alex",
		Email:       "alex@yandex.ru",
		PhoneNumber: "+7 903 333 33 33",
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.StatusOffline, u.Status)
	assert.Equal(t, "+79033333333", u.PhoneNumber)
}

func TestCreateUserValidation(t *testing.T) {
	users, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, models.CreateUserRequest{Name: "Alex", Email: "alex@yandex.ru", PhoneNumber: "+79033333333"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  models.CreateUserRequest
		msg  string
	}{
		{"bad email", models.CreateUserRequest{Name: "X", Email: "nope", PhoneNumber: "+79030000001"}, validation.MsgEmailInvalid},
		{"bad phone", models.CreateUserRequest{Name: "X", Email: "x@y.z", PhoneNumber: "123"}, validation.MsgPhoneInvalid},
		{"email taken", models.CreateUserRequest{Name: "X", Email: "alex@yandex.ru", PhoneNumber: "+79030000001"}, validation.MsgEmailTaken},
		{"phone taken", models.CreateUserRequest{Name: "X", Email: "x@y.z", PhoneNumber: "+7 903 333 33 33"}, validation.MsgPhoneTaken},
		{"no name", models.CreateUserRequest{Email: "x@y.z", PhoneNumber: "+79030000001"}, validation.MsgNameInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.CreateUser(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, validation.IsValidationError(err))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestUpdateUserPartial(t *testing.T) {
	users, _ := newUserFixture(t)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, models.CreateUserRequest{Name: "Alex", Email: "alex@yandex.ru", PhoneNumber: "+79033333333"})
	require.NoError(t, err)

	updated, err := users.UpdateUser(ctx, u.ID, models.UpdateUserRequest{
		Name:  strPtr(""),
		Email: strPtr("alex@yandex.ru"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alex", updated.Name)

	updated, err = users.UpdateUser(ctx, u.ID, models.UpdateUserRequest{
		Name:        strPtr("Alexey"),
		PhoneNumber: strPtr("+7 903 111 11 11"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alexey", updated.Name)
	assert.Equal(t, "+79031111111", updated.PhoneNumber)

	_, err = users.UpdateUser(ctx, 999, models.UpdateUserRequest{Name: strPtr("Ghost")})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUpdateUserKeepsPresence(t *testing.T) {
	users, f := newUserFixture(t)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, models.CreateUserRequest{Name: "Alex", Email: "alex@yandex.ru", PhoneNumber: "+79033333333"})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, u.ID, "ONLINE")
	require.NoError(t, err)

	updated, err := users.UpdateUser(ctx, u.ID, models.UpdateUserRequest{Name: strPtr("Alexey")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, updated.Status)
}

func TestDeleteUserCancelsPendingExpiry(t *testing.T) {
	users, f := newUserFixture(t)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, models.CreateUserRequest{Name: "Alex", Email: "alex@yandex.ru", PhoneNumber: "+79033333333"})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, u.ID, "ONLINE")
	require.NoError(t, err)

	require.NoError(t, users.DeleteUser(ctx, u.ID))
	_, ok := f.svc.PendingExpiry(u.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, users.DeleteUser(ctx, u.ID), repository.ErrUserNotFound)
}

func TestDeleteUserStoreErrorKeepsTimer(t *testing.T) {
	repo := new(MockUserRepository)
	timers := &countingScheduler{}
	logger := zerolog.Nop()
	presence := NewPresenceService(repo, timers, DefaultAwayDelay, metrics.New(nil), &logger)
	users := NewUserService(repo, presence, &logger)

	repo.On("Delete", mock.Anything, int64(7)).Return(repository.ErrUserNotFound)

	assert.ErrorIs(t, users.DeleteUser(context.Background(), 7), repository.ErrUserNotFound)
	assert.Zero(t, timers.calls)
	repo.AssertExpectations(t)
}

// slowLookups widens the gap between the uniqueness lookups and the write.
type slowLookups struct {
	repository.UserRepository
}

func (r slowLookups) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	time.Sleep(10 * time.Millisecond)
	return r.UserRepository.GetByPhone(ctx, phoneNumber)
}

func TestConcurrentCreateKeepsEmailAndPhoneUnique(t *testing.T) {
	f := newPresenceFixture(t)
	logger := zerolog.Nop()
	users := NewUserService(slowLookups{f.repo}, f.svc, &logger)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := users.CreateUser(context.Background(), models.CreateUserRequest{
				Name:        "Alex",
				Email:       "alex@yandex.ru",
				PhoneNumber: "+79033333333",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, validation.IsValidationError(err), err)
		assert.Contains(t, []string{validation.MsgEmailTaken, validation.MsgPhoneTaken}, err.Error())
	}
	assert.Equal(t, 1, created)

	all, err := f.repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateUserStoreClashIsValidationError(t *testing.T) {
	repo := new(MockUserRepository)
	logger := zerolog.Nop()
	presence := NewPresenceService(repo, &countingScheduler{}, DefaultAwayDelay, metrics.New(nil), &logger)
	users := NewUserService(repo, presence, &logger)

	repo.On("GetByEmail", mock.Anything, "alex@yandex.ru").Return(nil, repository.ErrUserNotFound)
	repo.On("GetByPhone", mock.Anything, "+79033333333").Return(nil, repository.ErrUserNotFound)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil, repository.ErrPhoneTaken)

	_, err := users.CreateUser(context.Background(), models.CreateUserRequest{
		Name:        "Alex",
		Email:       "alex@yandex.ru",
		PhoneNumber: "8 903 333-33-33",
	})
	require.Error(t, err)
	assert.True(t, validation.IsValidationError(err))
	assert.Equal(t, validation.MsgPhoneTaken, err.Error())
	repo.AssertExpectations(t)
}
