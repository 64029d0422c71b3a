package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// SharingService maintains the (user, task) visibility edges
type SharingService struct {
	userRepo   ports.UserRepository
	boardRepo  ports.BoardRepository
	shareRepo  ports.ShareRepository
	visibility *VisibilityService
	views      *ViewCache
	logger     *logger.Logger
}

// NewSharingService creates a new sharing service
func NewSharingService(
	userRepo ports.UserRepository,
	boardRepo ports.BoardRepository,
	shareRepo ports.ShareRepository,
	visibility *VisibilityService,
	views *ViewCache,
	logger *logger.Logger,
) *SharingService {
	return &SharingService{
		userRepo:   userRepo,
		boardRepo:  boardRepo,
		shareRepo:  shareRepo,
		visibility: visibility,
		views:      views,
		logger:     logger.WithComponent("sharing"),
	}
}

// Share makes taskID visible to targetID. Sharing an already shared task is a
// no-op.
func (s *SharingService) Share(ctx context.Context, actorID uuid.UUID, taskID int64, targetID uuid.UUID) error {
	task, err := s.loadShareable(ctx, actorID, taskID)
	if err != nil {
		return err
	}
	return s.share(ctx, task, targetID)
}

// ShareWithMany shares the task with every target in order and stops at the
// first failure.
func (s *SharingService) ShareWithMany(ctx context.Context, actorID uuid.UUID, taskID int64, targetIDs []uuid.UUID) error {
	if len(targetIDs) == 0 {
		return entities.NewValidationError("user_ids", "at least one user is required")
	}
	task, err := s.loadShareable(ctx, actorID, taskID)
	if err != nil {
		return err
	}
	for _, target := range targetIDs {
		if err := s.share(ctx, task, target); err != nil {
			return fmt.Errorf("share with %s: %w", target, err)
		}
	}
	return nil
}

func (s *SharingService) loadShareable(ctx context.Context, actorID uuid.UUID, taskID int64) (*entities.Task, error) {
	task, err := s.visibility.loadViewable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if !s.visibility.CanShare(actorID, task) {
		return nil, entities.ErrForbidden
	}
	return task, nil
}

func (s *SharingService) share(ctx context.Context, task *entities.Task, targetID uuid.UUID) error {
	if task.IsAuthoredBy(targetID) {
		return entities.ErrCannotShareWithSelf
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	board, err := s.boardRepo.GetByID(ctx, task.BoardID)
	if err != nil {
		return fmt.Errorf("load task board: %w", err)
	}
	if _, err := s.boardRepo.GetByOwnerAndCategory(ctx, targetID, board.Category); err != nil {
		if entities.IsNotFound(err) {
			return entities.ErrNoMatchingBoard
		}
		return fmt.Errorf("load recipient board: %w", err)
	}

	created, err := s.shareRepo.Create(ctx, &entities.Share{
		UserID:    targetID,
		TaskID:    task.ID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	if !created {
		s.logger.Infow("Task already shared", "task_id", task.ID, "user_id", targetID)
		return nil
	}

	s.views.Invalidate(ctx, task.AuthorID, targetID)
	s.logger.LogUserAction(task.AuthorID.String(), "share_task", map[string]interface{}{
		"task_id":   task.ID,
		"shared_to": targetID.String(),
		"category":  board.Category,
	})
	return nil
}

// Unshare removes targetID's edge to the task. Removing an absent edge is a
// no-op.
func (s *SharingService) Unshare(ctx context.Context, actorID uuid.UUID, taskID int64, targetID uuid.UUID) error {
	task, err := s.loadShareable(ctx, actorID, taskID)
	if err != nil {
		return err
	}

	deleted, err := s.shareRepo.Delete(ctx, targetID, task.ID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if !deleted {
		s.logger.Infow("Task was not shared with user", "task_id", task.ID, "user_id", targetID)
		return nil
	}

	s.views.Invalidate(ctx, task.AuthorID, targetID)
	s.logger.LogUserAction(actorID.String(), "unshare_task", map[string]interface{}{
		"task_id":     task.ID,
		"revoked_for": targetID.String(),
	})
	return nil
}

// ListSharedWith returns the users who can see the task through a share,
// sorted by name then login. Any viewer of the task may ask.
func (s *SharingService) ListSharedWith(ctx context.Context, actorID uuid.UUID, taskID int64) ([]*entities.User, error) {
	task, err := s.visibility.loadViewable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}

	users, err := s.shareRepo.ListUsersForTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(users))
	out := make([]*entities.User, 0, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		u.PasswordHash = ""
		out = append(out, u)
	}
	sortUsersByName(out)
	return out, nil
}

// ListSharedTasksFor returns the ids of tasks shared with userID.
func (s *SharingService) ListSharedTasksFor(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	ids, err := s.shareRepo.ListTaskIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared tasks: %w", err)
	}
	return ids, nil
}

// PurgeForTask removes every edge of the task and invalidates the views of
// the former recipients.
func (s *SharingService) PurgeForTask(ctx context.Context, taskID int64) error {
	users, err := s.shareRepo.ListUsersForTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("list shares: %w", err)
	}
	if err := s.shareRepo.DeleteByTask(ctx, taskID); err != nil {
		return fmt.Errorf("purge shares: %w", err)
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	s.views.Invalidate(ctx, ids...)

	if len(users) > 0 {
		s.logger.Infow("Shares purged", "task_id", taskID, "recipients", len(users))
	}
	return nil
}
