package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/adapters/cache"
	"github.com/taskmaster/bacheca/internal/adapters/repository/memory"
	"github.com/taskmaster/bacheca/internal/application/services"
	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/config"
	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
	"github.com/taskmaster/bacheca/internal/ports"
)

type fixture struct {
	ctx   context.Context
	svc   *services.Services
	repos *ports.Repositories
	cache *cache.MemoryCache

	marianna *entities.User
	anto     *entities.User
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			ExpiresIn:        time.Hour,
			RefreshExpiresIn: 24 * time.Hour,
			Issuer:           "bacheca-test",
		},
		Redis: config.RedisConfig{ViewTTL: time.Minute},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := memory.NewRepositories()
	c := cache.NewMemoryCache()
	f := &fixture{
		ctx:   context.Background(),
		svc:   services.New(repos, c, testConfig(), logger.NewNop()),
		repos: repos,
		cache: c,
	}
	f.marianna = f.account(t, "Marianna", "marianna", "stress")
	f.anto = f.account(t, "Antonietta", "anto", "pass")
	return f
}

func (f *fixture) account(t *testing.T, name, login, password string) *entities.User {
	t.Helper()
	u, err := f.svc.Auth.CreateAccount(f.ctx, ports.RegisterRequest{Name: name, Login: login, Password: password})
	if err != nil {
		t.Fatalf("create account %s: %v", login, err)
	}
	return u
}

func (f *fixture) task(t *testing.T, author uuid.UUID, category entities.BoardCategory, title, due string, checklist ...string) *entities.Task {
	t.Helper()
	task, err := f.svc.Tasks.CreateTask(f.ctx, author, ports.CreateTaskRequest{
		Category:  string(category),
		Title:     title,
		DueDate:   due,
		Checklist: checklist,
	})
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}

func (f *fixture) visibleTitles(t *testing.T, user uuid.UUID, category entities.BoardCategory) []string {
	t.Helper()
	tasks, err := f.svc.Visibility.TasksVisibleTo(f.ctx, user, category)
	if err != nil {
		t.Fatalf("TasksVisibleTo: %v", err)
	}
	return titles(tasks)
}

func (f *fixture) board(t *testing.T, owner uuid.UUID, category entities.BoardCategory) *entities.Board {
	t.Helper()
	b, err := f.repos.Boards.GetByOwnerAndCategory(f.ctx, owner, category)
	if err != nil {
		t.Fatalf("board %s: %v", category, err)
	}
	return b
}

func titles(tasks []*entities.Task) []string {
	out := []string{}
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
