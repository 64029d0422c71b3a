package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskmaster/bacheca/internal/application/services"
	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

var demoAccounts = []ports.RegisterRequest{
	{Name: "Marianna", Login: "marianna", Password: "demo1234"},
	{Name: "Antonietta", Login: "anto", Password: "demo1234"},
}

// seedDemo creates two demo accounts with a shared task. Running it against
// storage that already holds the accounts does nothing.
func seedDemo(ctx context.Context, svc *services.Services, log *logger.Logger) error {
	users := make([]*entities.User, 0, len(demoAccounts))
	for _, req := range demoAccounts {
		user, err := svc.Auth.CreateAccount(ctx, req)
		if errors.Is(err, entities.ErrLoginTaken) {
			log.Infow("Demo data already present", "login", req.Login)
			return nil
		}
		if err != nil {
			return fmt.Errorf("create demo user %s: %w", req.Login, err)
		}
		users = append(users, user)
	}
	author, recipient := users[0], users[1]

	due := time.Now().AddDate(0, 0, 7).Format(ports.DateLayout)
	thesis, err := svc.Tasks.CreateTask(ctx, author.ID, ports.CreateTaskRequest{
		Category:    string(entities.CategoryUniversity),
		Title:       "Thesis chapter",
		Description: "Draft the related work section",
		DueDate:     due,
		Checklist:   []string{"Collect papers", "Write outline", "Send to advisor"},
	})
	if err != nil {
		return fmt.Errorf("create demo task: %w", err)
	}
	if err := svc.Sharing.Share(ctx, author.ID, thesis.ID, recipient.ID); err != nil {
		return fmt.Errorf("share demo task: %w", err)
	}

	if _, err := svc.Tasks.CreateTask(ctx, recipient.ID, ports.CreateTaskRequest{
		Category: string(entities.CategoryFreeTime),
		Title:    "Climbing session",
		DueDate:  time.Now().Format(ports.DateLayout),
	}); err != nil {
		return fmt.Errorf("create demo task: %w", err)
	}

	log.Infow("Demo data seeded", "users", len(users))
	return nil
}
