package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// UserService handles user lookups
type UserService struct {
	userRepo ports.UserRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// ListUsers returns every user except exclude, sorted by name then login.
// The share dialog uses it to offer recipients.
func (s *UserService) ListUsers(ctx context.Context, exclude uuid.UUID) ([]*entities.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*entities.User, 0, len(users))
	for _, u := range users {
		if u.ID == exclude {
			continue
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	sortUsersByName(out)
	return out, nil
}
