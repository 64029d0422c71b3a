package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// VisibilityService resolves which tasks a user sees per board category and
// answers the authorization predicates used by the other services.
type VisibilityService struct {
	boardRepo    ports.BoardRepository
	taskRepo     ports.TaskRepository
	activityRepo ports.ActivityRepository
	shareRepo    ports.ShareRepository
	views        *ViewCache
	logger       *logger.Logger
}

// NewVisibilityService creates a new visibility service
func NewVisibilityService(
	boardRepo ports.BoardRepository,
	taskRepo ports.TaskRepository,
	activityRepo ports.ActivityRepository,
	shareRepo ports.ShareRepository,
	views *ViewCache,
	logger *logger.Logger,
) *VisibilityService {
	return &VisibilityService{
		boardRepo:    boardRepo,
		taskRepo:     taskRepo,
		activityRepo: activityRepo,
		shareRepo:    shareRepo,
		views:        views,
		logger:       logger.WithComponent("visibility"),
	}
}

// TasksVisibleTo returns the tasks userID authored or was shared in boards of
// category, each once, ordered by position.
func (s *VisibilityService) TasksVisibleTo(ctx context.Context, userID uuid.UUID, category entities.BoardCategory) ([]*entities.Task, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidCategory, string(category))
	}
	if _, err := s.boardRepo.GetByOwnerAndCategory(ctx, userID, category); err != nil {
		return nil, err
	}

	if tasks, ok := s.views.Get(ctx, userID, category); ok {
		return tasks, nil
	}

	tasks, err := s.taskRepo.ListVisibleInCategory(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("list visible tasks: %w", err)
	}
	tasks = dedupeTasks(tasks)
	sortByPosition(tasks)

	if err := attachChecklists(ctx, s.activityRepo, tasks); err != nil {
		return nil, err
	}

	s.views.Put(ctx, userID, category, tasks)
	return tasks, nil
}

// BoardsFor returns every board of the user with its resolved tasks.
func (s *VisibilityService) BoardsFor(ctx context.Context, userID uuid.UUID) ([]entities.BoardView, error) {
	boards, err := s.boardRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	views := make([]entities.BoardView, 0, len(boards))
	for _, b := range boards {
		tasks, err := s.TasksVisibleTo(ctx, userID, b.Category)
		if err != nil {
			return nil, err
		}
		views = append(views, entities.BoardView{Board: b, Tasks: tasks})
	}
	return views, nil
}

// CanView reports whether userID authored task or holds a share edge to it.
func (s *VisibilityService) CanView(ctx context.Context, userID uuid.UUID, task *entities.Task) (bool, error) {
	if task.IsAuthoredBy(userID) {
		return true, nil
	}
	ok, err := s.shareRepo.Exists(ctx, userID, task.ID)
	if err != nil {
		return false, fmt.Errorf("check share: %w", err)
	}
	return ok, nil
}

func (s *VisibilityService) CanEdit(userID uuid.UUID, task *entities.Task) bool {
	return task.IsAuthoredBy(userID)
}

func (s *VisibilityService) CanDelete(userID uuid.UUID, task *entities.Task) bool {
	return task.IsAuthoredBy(userID)
}

func (s *VisibilityService) CanShare(userID uuid.UUID, task *entities.Task) bool {
	return task.IsAuthoredBy(userID)
}

// loadViewable fetches a task the actor may see. Tasks the actor cannot see
// are reported as not found.
func (s *VisibilityService) loadViewable(ctx context.Context, actorID uuid.UUID, taskID int64) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ok, err := s.CanView(ctx, actorID, task)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return task, nil
}

// loadEditable fetches a task the actor authored.
func (s *VisibilityService) loadEditable(ctx context.Context, actorID uuid.UUID, taskID int64) (*entities.Task, error) {
	task, err := s.loadViewable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if !s.CanEdit(actorID, task) {
		return nil, entities.ErrForbidden
	}
	return task, nil
}

// Reorder moves a task one step within its own board by swapping stored
// positions with its neighbour. Only the author may reorder, so the swap never
// touches a board the actor does not own. Stepping past either end is a no-op.
func (s *VisibilityService) Reorder(ctx context.Context, actorID uuid.UUID, taskID int64, direction entities.Direction) error {
	offset, err := direction.Offset()
	if err != nil {
		return err
	}

	task, err := s.loadEditable(ctx, actorID, taskID)
	if err != nil {
		return err
	}

	tasks, err := s.taskRepo.ListByBoard(ctx, task.BoardID)
	if err != nil {
		return fmt.Errorf("list board tasks: %w", err)
	}
	sortByPosition(tasks)

	index := -1
	for i, t := range tasks {
		if t.ID == task.ID {
			index = i
			break
		}
	}
	if index < 0 {
		return entities.ErrTaskNotFound
	}

	neighbour := index + offset
	if neighbour < 0 || neighbour >= len(tasks) {
		s.logger.Debugw("Reorder out of bounds", "task_id", taskID, "direction", direction, "user_id", actorID)
		return nil
	}

	current, other := tasks[index], tasks[neighbour]
	if err := s.taskRepo.SwapPositions(ctx, current, other); err != nil {
		return fmt.Errorf("swap positions: %w", err)
	}

	affected, err := s.affectedBy(ctx, current, other)
	if err != nil {
		return err
	}
	s.views.Invalidate(ctx, affected...)

	s.logger.Infow("Task reordered",
		"task_id", current.ID,
		"swapped_with", other.ID,
		"board_id", current.BoardID,
		"direction", direction,
		"user_id", actorID,
	)
	return nil
}

func (s *VisibilityService) affectedBy(ctx context.Context, tasks ...*entities.Task) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, t := range tasks {
		users, err := recipientsOf(ctx, s.shareRepo, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, users...)
	}
	return ids, nil
}
