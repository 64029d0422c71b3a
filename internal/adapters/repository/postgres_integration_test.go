//go:build integration

package repository

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/infrastructure/config"
	"github.com/taskmaster/bacheca/internal/infrastructure/database"
	"github.com/taskmaster/bacheca/internal/ports"
)

// Run with: BACHECA_TEST_PG_HOST=localhost go test -tags integration ./internal/adapters/repository/
// The target database is wiped by the down migrations before every test.

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newPostgresRepos(t *testing.T) *ports.Repositories {
	t.Helper()
	host := os.Getenv("BACHECA_TEST_PG_HOST")
	if host == "" {
		t.Skip("BACHECA_TEST_PG_HOST not set")
	}
	port, err := strconv.Atoi(envOr("BACHECA_TEST_PG_PORT", "5432"))
	if err != nil {
		t.Fatalf("BACHECA_TEST_PG_PORT: %v", err)
	}
	cfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            host,
		Port:            port,
		Name:            envOr("BACHECA_TEST_PG_NAME", "bacheca_test"),
		User:            envOr("BACHECA_TEST_PG_USER", "postgres"),
		Password:        envOr("BACHECA_TEST_PG_PASSWORD", "postgres"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}

	m, err := database.NewMigrator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Down(); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if _, err := m.Up(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := database.New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepositories(db)
}

func pgUser(t *testing.T, repos *ports.Repositories, login string) *entities.User {
	t.Helper()
	u := &entities.User{ID: uuid.New(), Name: login, Login: login, PasswordHash: "x"}
	if err := repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", login, err)
	}
	return u
}

func pgBoard(t *testing.T, repos *ports.Repositories, owner uuid.UUID, c entities.BoardCategory) *entities.Board {
	t.Helper()
	b := &entities.Board{OwnerID: owner, Category: c, Description: c.DefaultDescription()}
	if _, err := repos.Boards.Create(context.Background(), b); err != nil {
		t.Fatalf("create board: %v", err)
	}
	return b
}

func pgTask(t *testing.T, repos *ports.Repositories, board *entities.Board, title, description string, due time.Time) *entities.Task {
	t.Helper()
	ctx := context.Background()
	pos, err := repos.Tasks.NextPosition(ctx, board.ID)
	if err != nil {
		t.Fatal(err)
	}
	task := &entities.Task{
		BoardID:     board.ID,
		AuthorID:    board.OwnerID,
		Title:       title,
		Description: description,
		DueDate:     &due,
		Status:      entities.StatusNotCompleted,
		Position:    pos,
	}
	if err := repos.Tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func pgTitles(tasks []*entities.Task) []string {
	out := []string{}
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestPostgresVisibilityAndSearch(t *testing.T) {
	ctx := context.Background()
	repos := newPostgresRepos(t)
	marianna := pgUser(t, repos, "marianna")
	anto := pgUser(t, repos, "anto")
	mBoard := pgBoard(t, repos, marianna.ID, entities.CategoryUniversity)
	aBoard := pgBoard(t, repos, anto.ID, entities.CategoryUniversity)

	day := func(d int) time.Time { return time.Date(2026, time.November, d, 0, 0, 0, 0, time.UTC) }
	shared := pgTask(t, repos, mBoard, "ÉTUDE finale", "chapter 7", day(5))
	pgTask(t, repos, mBoard, "Private", "", day(1))
	pgTask(t, repos, aBoard, "Grocery 100%", "", day(3))
	pgTask(t, repos, aBoard, "1000 words", "", day(9))

	if created, err := repos.Shares.Create(ctx, &entities.Share{UserID: anto.ID, TaskID: shared.ID}); err != nil || !created {
		t.Fatalf("share: created=%v err=%v", created, err)
	}
	if created, err := repos.Shares.Create(ctx, &entities.Share{UserID: anto.ID, TaskID: shared.ID}); err != nil || created {
		t.Errorf("duplicate share: created=%v err=%v", created, err)
	}

	visible, err := repos.Tasks.ListVisibleInCategory(ctx, anto.ID, entities.CategoryUniversity)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ÉTUDE finale", "Grocery 100%", "1000 words"}, pgTitles(visible)); diff != "" {
		t.Errorf("visible (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		term string
		want []string
	}{
		{"étude", []string{"ÉTUDE finale"}},
		{"CHAPTER", []string{"ÉTUDE finale"}},
		{"100%", []string{"Grocery 100%"}},
		{"_", []string{}},
		{"private", []string{}},
	} {
		term := tc.term
		found, err := repos.Tasks.Search(ctx, ports.TaskFilter{VisibleTo: anto.ID, Term: &term})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tc.want, pgTitles(found)); diff != "" {
			t.Errorf("term %q (-want +got):\n%s", tc.term, diff)
		}
	}

	due := day(5)
	found, err := repos.Tasks.Search(ctx, ports.TaskFilter{VisibleTo: anto.ID, DueBy: &due})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Grocery 100%", "ÉTUDE finale"}, pgTitles(found)); diff != "" {
		t.Errorf("due by (-want +got):\n%s", diff)
	}
}

func TestPostgresDeleteAndSwap(t *testing.T) {
	ctx := context.Background()
	repos := newPostgresRepos(t)
	u := pgUser(t, repos, "marianna")
	other := pgUser(t, repos, "anto")
	board := pgBoard(t, repos, u.ID, entities.CategoryWork)
	day := time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC)
	first := pgTask(t, repos, board, "First", "", day)
	second := pgTask(t, repos, board, "Second", "", day)

	if err := repos.Tasks.SwapPositions(ctx, first, second); err != nil {
		t.Fatal(err)
	}
	if first.Position != 1 || second.Position != 0 {
		t.Errorf("positions after swap: %d, %d", first.Position, second.Position)
	}

	if _, err := repos.Activities.ReplaceForTask(ctx, first.ID, []entities.Activity{{Name: "outline", Status: entities.StatusNotCompleted}}); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Shares.Create(ctx, &entities.Share{UserID: other.ID, TaskID: first.ID}); err != nil {
		t.Fatal(err)
	}

	if err := repos.Tasks.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	if err := repos.Tasks.Delete(ctx, first.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("second delete: got %v, want ErrTaskNotFound", err)
	}
	if ok, _ := repos.Shares.Exists(ctx, other.ID, first.ID); ok {
		t.Error("share survived task delete")
	}
	if left, _ := repos.Activities.ListByTask(ctx, first.ID); len(left) != 0 {
		t.Errorf("activities survived task delete: %v", left)
	}
}

func TestPostgresLoginUniqueIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repos := newPostgresRepos(t)
	u := pgUser(t, repos, "marianna")
	pgBoard(t, repos, u.ID, entities.CategoryWork)

	dup := &entities.User{ID: uuid.New(), Name: "Other", Login: "Marianna", PasswordHash: "x"}
	if err := repos.Users.Create(ctx, dup); !errors.Is(err, entities.ErrLoginTaken) {
		t.Errorf("mixed case duplicate: got %v, want ErrLoginTaken", err)
	}

	if err := repos.Users.Delete(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if boards, _ := repos.Boards.ListByOwner(ctx, u.ID); len(boards) != 0 {
		t.Errorf("boards survived user delete: %v", boards)
	}
}
