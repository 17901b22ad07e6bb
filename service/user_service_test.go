package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"seatduel/models"

	"github.com/stretchr/testify/assert"
)

func newUserServiceFixture() (*MockUnitOfWork, *MockUserRepository, UserService) {
	factory := new(MockUnitOfWorkFactory)
	uow := new(MockUnitOfWork)
	users := new(MockUserRepository)
	uow.SetRepositories(new(MockSeatRepository), new(MockDuelRepository), users, new(MockEventPublisher))
	factory.On("Create").Return(uow)

	runner := NewTxRunner(factory, 1, time.Millisecond)
	return uow, users, NewUserService(runner)
}

func TestUserService_GetOrCreateUser_ExistingUser(t *testing.T) {
	ctx := context.Background()
	uow, users, service := newUserServiceFixture()

	existing := &models.User{TelegramID: "123", Name: "Alice"}

	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	users.On("GetByTelegramID", ctx, "123").Return(existing, nil)

	user, err := service.GetOrCreateUser(ctx, "123", "Alice", nil)

	assert.NoError(t, err)
	assert.Equal(t, existing, user)
	users.AssertNotCalled(t, "Create")
}

func TestUserService_GetOrCreateUser_NewUser(t *testing.T) {
	ctx := context.Background()
	uow, users, service := newUserServiceFixture()

	username := "alice_tg"
	created := &models.User{TelegramID: "123", Name: "Alice", Username: &username}

	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	users.On("GetByTelegramID", ctx, "123").Return(nil, nil)
	users.On("Create", ctx, "123", "Alice", &username).Return(created, nil)

	user, err := service.GetOrCreateUser(ctx, "123", "Alice", &username)

	assert.NoError(t, err)
	assert.Equal(t, created, user)
	users.AssertExpectations(t)
}

func TestUserService_GetOrCreateUser_MissingFields(t *testing.T) {
	ctx := context.Background()
	_, _, service := newUserServiceFixture()

	user, err := service.GetOrCreateUser(ctx, "", "Alice", nil)

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Nil(t, user)
}

func TestUserService_GetOrCreateUser_CreateError(t *testing.T) {
	ctx := context.Background()
	uow, users, service := newUserServiceFixture()

	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)
	users.On("GetByTelegramID", ctx, "123").Return(nil, nil)
	users.On("Create", ctx, "123", "Alice", (*string)(nil)).Return(nil, errors.New("database error"))

	user, err := service.GetOrCreateUser(ctx, "123", "Alice", nil)

	assert.Error(t, err)
	assert.Nil(t, user)
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	ctx := context.Background()
	uow, users, service := newUserServiceFixture()

	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)
	users.On("GetByTelegramID", ctx, "missing").Return(nil, nil)

	user, err := service.GetUser(ctx, "missing")

	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.Nil(t, user)
}
