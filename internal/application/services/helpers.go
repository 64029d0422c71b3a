package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

// attachChecklists loads the activities of every task in one query.
func attachChecklists(ctx context.Context, activityRepo ports.ActivityRepository, tasks []*entities.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	byTask, err := activityRepo.ListByTasks(ctx, ids)
	if err != nil {
		return fmt.Errorf("load checklists: %w", err)
	}
	for _, t := range tasks {
		t.Checklist = byTask[t.ID]
	}
	return nil
}

// dedupeTasks keeps the first occurrence of every task id.
func dedupeTasks(tasks []*entities.Task) []*entities.Task {
	seen := make(map[int64]bool, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func sortByPosition(tasks []*entities.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Position < tasks[j].Position
	})
}

// recipientsOf returns the author plus every user the task is shared with.
func recipientsOf(ctx context.Context, shareRepo ports.ShareRepository, task *entities.Task) ([]uuid.UUID, error) {
	users, err := shareRepo.ListUsersForTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list share recipients: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(users)+1)
	ids = append(ids, task.AuthorID)
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, entities.NewValidationError("due_date", "is required")
	}
	d, err := time.Parse(ports.DateLayout, s)
	if err != nil {
		return nil, entities.NewValidationError("due_date", "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

func validateColor(color *string) error {
	if color == nil || *color == "" {
		return nil
	}
	c := *color
	if len(c) != 7 || c[0] != '#' {
		return entities.NewValidationError("color", "must be #RRGGBB")
	}
	for _, r := range c[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return entities.NewValidationError("color", "must be #RRGGBB")
		}
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func sortUsersByName(users []*entities.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].Login < users[j].Login
	})
}
