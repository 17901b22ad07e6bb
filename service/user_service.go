package service

import (
	"context"
	"fmt"

	"seatduel/models"

	log "github.com/sirupsen/logrus"
)

type userService struct {
	runner *TxRunner
}

// NewUserService creates a new user service
func NewUserService(runner *TxRunner) UserService {
	return &userService{runner: runner}
}

// GetOrCreateUser retrieves an existing user or registers a new one
func (s *userService) GetOrCreateUser(ctx context.Context, telegramID, name string, username *string) (*models.User, error) {
	if telegramID == "" || name == "" {
		return nil, fmt.Errorf("%w: telegram id and name are required", models.ErrValidation)
	}

	var user *models.User
	err := s.runner.Do(ctx, func(uow UnitOfWork) error {
		var err error
		user, err = uow.UserRepository().GetByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}
		if user != nil {
			return nil
		}

		user, err = uow.UserRepository().Create(ctx, telegramID, name, username)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"user": telegramID,
			"name": name,
		}).Info("User registered")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user
func (s *userService) GetUser(ctx context.Context, telegramID string) (*models.User, error) {
	var user *models.User
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		user, err = uow.UserRepository().GetByTelegramID(ctx, telegramID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// MarkRulesSeen records that the user dismissed the rules screen
func (s *userService) MarkRulesSeen(ctx context.Context, telegramID string) error {
	return s.runner.Do(ctx, func(uow UnitOfWork) error {
		return uow.UserRepository().MarkRulesSeen(ctx, telegramID)
	})
}

// ListUsers returns all users
func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.runner.DoRead(ctx, func(uow UnitOfWork) error {
		var err error
		users, err = uow.UserRepository().GetAll(ctx)
		return err
	})
	return users, err
}
