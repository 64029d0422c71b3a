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

// SearchService scans the tasks a user can see. Results are ordered by due
// date with undated tasks last.
type SearchService struct {
	taskRepo     ports.TaskRepository
	activityRepo ports.ActivityRepository
	logger       *logger.Logger
	now          func() time.Time
}

// NewSearchService creates a new search service
func NewSearchService(taskRepo ports.TaskRepository, activityRepo ports.ActivityRepository, logger *logger.Logger) *SearchService {
	return &SearchService{
		taskRepo:     taskRepo,
		activityRepo: activityRepo,
		logger:       logger.WithComponent("search"),
		now:          time.Now,
	}
}

// SearchByTerm matches term case-insensitively against title and description
func (s *SearchService) SearchByTerm(ctx context.Context, userID uuid.UUID, term string) ([]*entities.Task, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, entities.NewValidationError("term", "is required")
	}
	return s.search(ctx, ports.TaskFilter{VisibleTo: userID, Term: &term})
}

// SearchDueBy returns tasks due on or before day
func (s *SearchService) SearchDueBy(ctx context.Context, userID uuid.UUID, day time.Time) ([]*entities.Task, error) {
	y, m, d := day.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return s.search(ctx, ports.TaskFilter{VisibleTo: userID, DueBy: &day})
}

// DueToday returns tasks due today or overdue
func (s *SearchService) DueToday(ctx context.Context, userID uuid.UUID) ([]*entities.Task, error) {
	return s.SearchDueBy(ctx, userID, s.now())
}

func (s *SearchService) search(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	tasks, err := s.taskRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	tasks = dedupeTasks(tasks)
	if err := attachChecklists(ctx, s.activityRepo, tasks); err != nil {
		return nil, err
	}
	s.logger.Debugw("Search completed", "user_id", filter.VisibleTo, "results", len(tasks))
	return tasks, nil
}
