package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

func newTestRepos(t *testing.T) *ports.Repositories {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "bacheca.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewRepositories(db)
}

func mustUser(t *testing.T, repos *ports.Repositories, login string) *entities.User {
	t.Helper()
	u := &entities.User{ID: uuid.New(), Name: login, Login: login, PasswordHash: "x"}
	if err := repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", login, err)
	}
	return u
}

func mustBoard(t *testing.T, repos *ports.Repositories, owner uuid.UUID, c entities.BoardCategory) *entities.Board {
	t.Helper()
	b := &entities.Board{OwnerID: owner, Category: c, Description: c.DefaultDescription()}
	if _, err := repos.Boards.Create(context.Background(), b); err != nil {
		t.Fatalf("create board: %v", err)
	}
	return b
}

func mustTask(t *testing.T, repos *ports.Repositories, board *entities.Board, title string, due time.Time) *entities.Task {
	t.Helper()
	ctx := context.Background()
	pos, err := repos.Tasks.NextPosition(ctx, board.ID)
	if err != nil {
		t.Fatal(err)
	}
	task := &entities.Task{
		BoardID:  board.ID,
		AuthorID: board.OwnerID,
		Title:    title,
		DueDate:  &due,
		Status:   entities.StatusNotCompleted,
		Position: pos,
	}
	if err := repos.Tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func titlesOf(tasks []*entities.Task) []string {
	out := []string{}
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestUsersAndBoards(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	u := mustUser(t, repos, "marianna")

	dup := &entities.User{ID: uuid.New(), Name: "Other", Login: "marianna", PasswordHash: "x"}
	if err := repos.Users.Create(ctx, dup); !errors.Is(err, entities.ErrLoginTaken) {
		t.Errorf("duplicate login: got %v, want ErrLoginTaken", err)
	}

	for _, c := range []entities.BoardCategory{entities.CategoryFreeTime, entities.CategoryUniversity, entities.CategoryWork} {
		mustBoard(t, repos, u.ID, c)
	}
	again := &entities.Board{OwnerID: u.ID, Category: entities.CategoryWork, Description: "other"}
	created, err := repos.Boards.Create(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if created || again.Description != entities.CategoryWork.DefaultDescription() {
		t.Errorf("duplicate board created=%v %+v", created, again)
	}

	boards, err := repos.Boards.ListByOwner(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got []entities.BoardCategory
	for _, b := range boards {
		got = append(got, b.Category)
	}
	if diff := cmp.Diff(entities.Categories, got); diff != "" {
		t.Errorf("board order (-want +got):\n%s", diff)
	}
}

func TestVisibilityAndSearch(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	marianna := mustUser(t, repos, "marianna")
	anto := mustUser(t, repos, "anto")
	mBoard := mustBoard(t, repos, marianna.ID, entities.CategoryWork)
	aBoard := mustBoard(t, repos, anto.ID, entities.CategoryWork)

	day := func(d int) time.Time { return time.Date(2026, time.November, d, 0, 0, 0, 0, time.UTC) }
	shared := mustTask(t, repos, mBoard, "Shared report", day(5))
	mustTask(t, repos, mBoard, "Private", day(1))
	mustTask(t, repos, aBoard, "Own", day(3))

	created, err := repos.Shares.Create(ctx, &entities.Share{UserID: anto.ID, TaskID: shared.ID})
	if err != nil || !created {
		t.Fatalf("share: created=%v err=%v", created, err)
	}
	created, err = repos.Shares.Create(ctx, &entities.Share{UserID: anto.ID, TaskID: shared.ID})
	if err != nil || created {
		t.Errorf("duplicate share: created=%v err=%v", created, err)
	}
	if _, err := repos.Shares.Create(ctx, &entities.Share{UserID: uuid.New(), TaskID: shared.ID}); !errors.Is(err, entities.ErrUserNotFound) {
		t.Errorf("unknown user: %v", err)
	}

	visible, err := repos.Tasks.ListVisibleInCategory(ctx, anto.ID, entities.CategoryWork)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Shared report", "Own"}, titlesOf(visible)); diff != "" {
		t.Errorf("visible (-want +got):\n%s", diff)
	}

	due := day(4)
	found, err := repos.Tasks.Search(ctx, ports.TaskFilter{VisibleTo: anto.ID, DueBy: &due})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Own"}, titlesOf(found)); diff != "" {
		t.Errorf("due by (-want +got):\n%s", diff)
	}

	term := "REPORT"
	found, err = repos.Tasks.Search(ctx, ports.TaskFilter{VisibleTo: anto.ID, Term: &term})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Shared report"}, titlesOf(found)); diff != "" {
		t.Errorf("term (-want +got):\n%s", diff)
	}
}

func TestChecklistAndBoardCascade(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	u := mustUser(t, repos, "marianna")
	other := mustUser(t, repos, "anto")
	board := mustBoard(t, repos, u.ID, entities.CategoryUniversity)
	first := mustTask(t, repos, board, "Thesis", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC))
	second := mustTask(t, repos, board, "Exam", time.Date(2026, 11, 9, 0, 0, 0, 0, time.UTC))

	if err := repos.Tasks.SwapPositions(ctx, first, second); err != nil {
		t.Fatal(err)
	}
	if first.Position != 1 || second.Position != 0 {
		t.Errorf("positions after swap: %d, %d", first.Position, second.Position)
	}

	list, err := repos.Activities.ReplaceForTask(ctx, first.ID, []entities.Activity{
		{Name: "outline", Status: entities.StatusNotCompleted},
		{Name: "draft", Status: entities.StatusNotCompleted},
	})
	if err != nil {
		t.Fatal(err)
	}
	extra := &entities.Activity{TaskID: first.ID, Name: "review", Status: entities.StatusNotCompleted}
	if err := repos.Activities.Create(ctx, extra); err != nil {
		t.Fatal(err)
	}
	if extra.Ordinal != 2 || list[1].Ordinal != 1 {
		t.Errorf("ordinals: %d, %d", list[1].Ordinal, extra.Ordinal)
	}

	ids, err := repos.Tasks.MarkBoardCompleted(ctx, board.ID, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{first.ID, second.ID}, ids); diff != "" {
		t.Errorf("completed ids (-want +got):\n%s", diff)
	}
	activities, err := repos.Activities.ListByTask(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range activities {
		if a.Status != entities.StatusCompleted {
			t.Errorf("activity %s still %s", a.Name, a.Status)
		}
	}

	if _, err := repos.Shares.Create(ctx, &entities.Share{UserID: other.ID, TaskID: first.ID}); err != nil {
		t.Fatal(err)
	}
	if err := repos.Boards.Delete(ctx, board.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Tasks.GetByID(ctx, first.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("task after board delete: %v", err)
	}
	if ok, _ := repos.Shares.Exists(ctx, other.ID, first.ID); ok {
		t.Error("share survived board delete")
	}
	if left, _ := repos.Activities.ListByTask(ctx, first.ID); len(left) != 0 {
		t.Errorf("activities survived board delete: %v", left)
	}
}

func TestSearchTermIgnoresUnicodeCase(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	u := mustUser(t, repos, "marianna")
	board := mustBoard(t, repos, u.ID, entities.CategoryUniversity)
	mustTask(t, repos, board, "ÉTUDE finale", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC))
	mustTask(t, repos, board, "Grocery 100%", time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC))

	for _, tc := range []struct {
		term string
		want []string
	}{
		{"étude", []string{"ÉTUDE finale"}},
		{"100%", []string{"Grocery 100%"}},
		{"%", []string{"Grocery 100%"}},
		{"missing", []string{}},
	} {
		term := tc.term
		found, err := repos.Tasks.Search(ctx, ports.TaskFilter{VisibleTo: u.ID, Term: &term})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(tc.want, titlesOf(found)); diff != "" {
			t.Errorf("term %q (-want +got):\n%s", tc.term, diff)
		}
	}
}

func TestUserDeleteRemovesBoards(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	u := mustUser(t, repos, "marianna")
	board := mustBoard(t, repos, u.ID, entities.CategoryWork)
	task := mustTask(t, repos, board, "Slides", time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC))

	if err := repos.Users.Delete(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Users.GetByID(ctx, u.ID); !errors.Is(err, entities.ErrUserNotFound) {
		t.Errorf("user after delete: %v", err)
	}
	if boards, _ := repos.Boards.ListByOwner(ctx, u.ID); len(boards) != 0 {
		t.Errorf("boards survived user delete: %v", boards)
	}
	if _, err := repos.Tasks.GetByID(ctx, task.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("task after user delete: %v", err)
	}
	if err := repos.Users.Delete(ctx, u.ID); !errors.Is(err, entities.ErrUserNotFound) {
		t.Errorf("second delete: got %v, want ErrUserNotFound", err)
	}
}
