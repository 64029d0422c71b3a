package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

// TaskService handles task and checklist operations
type TaskService struct {
	taskRepo     ports.TaskRepository
	boardRepo    ports.BoardRepository
	activityRepo ports.ActivityRepository
	shareRepo    ports.ShareRepository
	visibility   *VisibilityService
	views        *ViewCache
	logger       *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo ports.TaskRepository,
	boardRepo ports.BoardRepository,
	activityRepo ports.ActivityRepository,
	shareRepo ports.ShareRepository,
	visibility *VisibilityService,
	views *ViewCache,
	logger *logger.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		boardRepo:    boardRepo,
		activityRepo: activityRepo,
		shareRepo:    shareRepo,
		visibility:   visibility,
		views:        views,
		logger:       logger.WithComponent("tasks"),
	}
}

// CreateTask creates a task in the actor's board of the requested category
// at the end of the board.
func (s *TaskService) CreateTask(ctx context.Context, actorID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	category, err := entities.ParseBoardCategory(req.Category)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entities.NewValidationError("title", "is required")
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := validateColor(req.Color); err != nil {
		return nil, err
	}
	for _, name := range req.Checklist {
		if strings.TrimSpace(name) == "" {
			return nil, entities.NewValidationError("checklist", "activity name is required")
		}
	}

	board, err := s.boardRepo.GetByOwnerAndCategory(ctx, actorID, category)
	if err != nil {
		return nil, err
	}

	position, err := s.taskRepo.NextPosition(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	now := time.Now()
	task := &entities.Task{
		BoardID:     board.ID,
		AuthorID:    actorID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		DueDate:     due,
		ImagePath:   nonEmpty(req.ImagePath),
		URL:         nonEmpty(req.URL),
		Color:       nonEmpty(req.Color),
		Status:      entities.StatusNotCompleted,
		Position:    position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if len(req.Checklist) > 0 {
		items := make([]entities.Activity, len(req.Checklist))
		for i, name := range req.Checklist {
			items[i] = entities.Activity{Name: strings.TrimSpace(name), Status: entities.StatusNotCompleted}
		}
		checklist, err := s.activityRepo.ReplaceForTask(ctx, task.ID, items)
		if err != nil {
			return nil, fmt.Errorf("create checklist: %w", err)
		}
		task.Checklist = checklist
	}

	s.views.Invalidate(ctx, actorID)
	s.logger.Infow("Task created",
		"task_id", task.ID,
		"title", task.Title,
		"category", category,
		"position", task.Position,
		"user_id", actorID,
	)
	return task, nil
}

// GetTask returns a task with its checklist if the actor can see it
func (s *TaskService) GetTask(ctx context.Context, actorID uuid.UUID, taskID int64) (*entities.Task, error) {
	task, err := s.visibility.loadViewable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.loadChecklist(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask replaces the editable fields of a task. A non-nil checklist
// replaces the whole checklist.
func (s *TaskService) UpdateTask(ctx context.Context, actorID uuid.UUID, taskID int64, req ports.UpdateTaskRequest) (*entities.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entities.NewValidationError("title", "is required")
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := validateColor(req.Color); err != nil {
		return nil, err
	}
	if req.Checklist != nil {
		for _, item := range *req.Checklist {
			if strings.TrimSpace(item.Name) == "" {
				return nil, entities.NewValidationError("checklist", "activity name is required")
			}
		}
	}

	task, err := s.visibility.loadEditable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = strings.TrimSpace(req.Description)
	task.DueDate = due
	task.ImagePath = nonEmpty(req.ImagePath)
	task.URL = nonEmpty(req.URL)
	task.Color = nonEmpty(req.Color)
	task.UpdatedAt = time.Now()

	if req.Checklist != nil {
		items := make([]entities.Activity, len(*req.Checklist))
		for i, item := range *req.Checklist {
			items[i] = entities.Activity{
				Name:   strings.TrimSpace(item.Name),
				Status: entities.StatusFromBool(item.Completed),
			}
		}
		checklist, err := s.activityRepo.ReplaceForTask(ctx, task.ID, items)
		if err != nil {
			return nil, fmt.Errorf("replace checklist: %w", err)
		}
		task.Checklist = checklist
	} else if err := s.loadChecklist(ctx, task); err != nil {
		return nil, err
	}
	task.RecomputeStatus()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if err := s.invalidateFor(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Infow("Task updated", "task_id", task.ID, "status", task.Status, "user_id", actorID)
	return task, nil
}

// DeleteTask removes a task together with its share edges and checklist in
// one storage call.
func (s *TaskService) DeleteTask(ctx context.Context, actorID uuid.UUID, taskID int64) error {
	task, err := s.visibility.loadEditable(ctx, actorID, taskID)
	if err != nil {
		return err
	}

	affected, err := recipientsOf(ctx, s.shareRepo, task)
	if err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.views.Invalidate(ctx, affected...)
	s.logger.LogUserAction(actorID.String(), "delete_task", map[string]interface{}{
		"task_id":    task.ID,
		"title":      task.Title,
		"recipients": len(affected) - 1,
	})
	return nil
}

// MoveTask reassigns a task to the author's board of category, appending it
// at the end. Moving to the current board is a no-op.
func (s *TaskService) MoveTask(ctx context.Context, actorID uuid.UUID, taskID int64, category entities.BoardCategory) (*entities.Task, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidCategory, string(category))
	}

	task, err := s.visibility.loadEditable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}

	target, err := s.boardRepo.GetByOwnerAndCategory(ctx, actorID, category)
	if err != nil {
		return nil, err
	}

	if target.ID != task.BoardID {
		if err := s.checkRecipientsHaveBoard(ctx, task, category); err != nil {
			return nil, err
		}
		position, err := s.taskRepo.NextPosition(ctx, target.ID)
		if err != nil {
			return nil, fmt.Errorf("next position: %w", err)
		}
		from := task.BoardID
		task.BoardID = target.ID
		task.Position = position
		task.UpdatedAt = time.Now()

		if err := s.taskRepo.Update(ctx, task); err != nil {
			return nil, fmt.Errorf("move task: %w", err)
		}
		if err := s.invalidateFor(ctx, task); err != nil {
			return nil, err
		}
		s.logger.Infow("Task moved",
			"task_id", task.ID,
			"from_board", from,
			"to_board", target.ID,
			"category", category,
			"user_id", actorID,
		)
	}

	if err := s.loadChecklist(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// checkRecipientsHaveBoard rejects a move that would hide a shared task from
// a recipient without a board of the target category.
func (s *TaskService) checkRecipientsHaveBoard(ctx context.Context, task *entities.Task, category entities.BoardCategory) error {
	users, err := s.shareRepo.ListUsersForTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("list share recipients: %w", err)
	}
	for _, u := range users {
		if _, err := s.boardRepo.GetByOwnerAndCategory(ctx, u.ID, category); err != nil {
			if entities.IsNotFound(err) {
				return fmt.Errorf("%w: %s", entities.ErrNoMatchingBoard, u.Login)
			}
			return fmt.Errorf("load recipient board: %w", err)
		}
	}
	return nil
}

// SetTaskCompletion toggles a task without a checklist. Any viewer may call
// it.
func (s *TaskService) SetTaskCompletion(ctx context.Context, actorID uuid.UUID, taskID int64, completed bool) (*entities.Task, error) {
	task, err := s.visibility.loadViewable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.loadChecklist(ctx, task); err != nil {
		return nil, err
	}
	if err := task.SetCompleted(completed); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	if err := s.invalidateFor(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Infow("Task completion set", "task_id", task.ID, "status", task.Status, "user_id", actorID)
	return task, nil
}

// AddActivity appends an activity to the task checklist
func (s *TaskService) AddActivity(ctx context.Context, actorID uuid.UUID, taskID int64, name string) (*entities.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, entities.NewValidationError("name", "is required")
	}

	task, err := s.visibility.loadEditable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}

	activity := &entities.Activity{TaskID: task.ID, Name: name, Status: entities.StatusNotCompleted}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	if err := s.syncChecklistStatus(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Infow("Activity added", "task_id", task.ID, "activity_id", activity.ID, "user_id", actorID)
	return task, nil
}

// RemoveActivity deletes an activity from the task checklist
func (s *TaskService) RemoveActivity(ctx context.Context, actorID uuid.UUID, taskID, activityID int64) (*entities.Task, error) {
	task, err := s.visibility.loadEditable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activityOf(ctx, task, activityID); err != nil {
		return nil, err
	}

	if err := s.activityRepo.Delete(ctx, activityID); err != nil {
		return nil, fmt.Errorf("delete activity: %w", err)
	}

	if err := s.syncChecklistStatus(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Infow("Activity removed", "task_id", task.ID, "activity_id", activityID, "user_id", actorID)
	return task, nil
}

// ToggleActivity sets the status of one activity. Any viewer may call it.
func (s *TaskService) ToggleActivity(ctx context.Context, actorID uuid.UUID, taskID, activityID int64, completed bool) (*entities.Task, error) {
	task, err := s.visibility.loadViewable(ctx, actorID, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activityOf(ctx, task, activityID); err != nil {
		return nil, err
	}

	status := entities.StatusFromBool(completed)
	if err := s.activityRepo.SetStatus(ctx, activityID, status); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}

	if err := s.syncChecklistStatus(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Infow("Activity toggled",
		"task_id", task.ID,
		"activity_id", activityID,
		"status", status,
		"task_status", task.Status,
		"user_id", actorID,
	)
	return task, nil
}

func (s *TaskService) activityOf(ctx context.Context, task *entities.Task, activityID int64) (*entities.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.TaskID != task.ID {
		return nil, entities.ErrActivityNotFound
	}
	return activity, nil
}

func (s *TaskService) loadChecklist(ctx context.Context, task *entities.Task) error {
	checklist, err := s.activityRepo.ListByTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("load checklist: %w", err)
	}
	task.Checklist = checklist
	return nil
}

// syncChecklistStatus is the terminal step of every checklist mutation: it
// reloads the checklist, derives the task status and persists it if changed.
func (s *TaskService) syncChecklistStatus(ctx context.Context, task *entities.Task) error {
	if err := s.loadChecklist(ctx, task); err != nil {
		return err
	}

	before := task.Status
	task.RecomputeStatus()
	if task.Status != before {
		task.UpdatedAt = time.Now()
		if err := s.taskRepo.Update(ctx, task); err != nil {
			return fmt.Errorf("update task status: %w", err)
		}
	}

	return s.invalidateFor(ctx, task)
}

func (s *TaskService) invalidateFor(ctx context.Context, task *entities.Task) error {
	users, err := recipientsOf(ctx, s.shareRepo, task)
	if err != nil {
		return err
	}
	s.views.Invalidate(ctx, users...)
	return nil
}
