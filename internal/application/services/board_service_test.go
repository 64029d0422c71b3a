package services_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

func TestRegistrationProvisionsOneBoardPerCategory(t *testing.T) {
	f := newFixture(t)

	boards, err := f.svc.Boards.ListBoards(f.ctx, f.marianna.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got []entities.BoardCategory
	for _, b := range boards {
		got = append(got, b.Category)
		if b.Description != b.Category.DefaultDescription() {
			t.Errorf("%s description %q", b.Category, b.Description)
		}
	}
	if diff := cmp.Diff(entities.Categories, got); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}

	again, err := f.svc.Boards.ProvisionDefaultBoards(f.ctx, f.marianna.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range again {
		if b.ID != boards[i].ID {
			t.Errorf("%s reprovisioned as board %d, want %d", b.Category, b.ID, boards[i].ID)
		}
	}
}

func TestCreateBoardIsIdempotent(t *testing.T) {
	f := newFixture(t)
	existing := f.board(t, f.marianna.ID, entities.CategoryWork)

	got, err := f.svc.Boards.CreateBoard(f.ctx, f.marianna.ID, ports.CreateBoardRequest{Category: "work", Description: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != existing.ID || got.Description != existing.Description {
		t.Errorf("got board %+v, want %+v", got, existing)
	}

	if err := f.svc.Boards.DeleteBoard(f.ctx, f.marianna.ID, existing.ID); err != nil {
		t.Fatal(err)
	}
	recreated, err := f.svc.Boards.CreateBoard(f.ctx, f.marianna.ID, ports.CreateBoardRequest{Category: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	if recreated.ID == existing.ID || recreated.Description != entities.CategoryWork.DefaultDescription() {
		t.Errorf("recreated board %+v", recreated)
	}

	if _, err := f.svc.Boards.CreateBoard(f.ctx, f.marianna.ID, ports.CreateBoardRequest{Category: "HOBBY"}); !errors.Is(err, entities.ErrInvalidCategory) {
		t.Errorf("got %v, want ErrInvalidCategory", err)
	}
}

func TestDeleteBoardCascadesAndKeepsLastBoard(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryWork, "Slides", "2026-11-02", "draft")
	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}
	f.visibleTitles(t, f.anto.ID, entities.CategoryWork)

	work := f.board(t, f.marianna.ID, entities.CategoryWork)
	if err := f.svc.Boards.DeleteBoard(f.ctx, f.anto.ID, work.ID); !errors.Is(err, entities.ErrBoardNotFound) {
		t.Errorf("foreign delete: got %v, want ErrBoardNotFound", err)
	}

	if err := f.svc.Boards.DeleteBoard(f.ctx, f.marianna.ID, work.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.visibleTitles(t, f.anto.ID, entities.CategoryWork); len(got) != 0 {
		t.Errorf("recipient still sees %v", got)
	}
	if _, err := f.repos.Tasks.GetByID(f.ctx, task.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("task survived board deletion: %v", err)
	}
	if ok, _ := f.repos.Shares.Exists(f.ctx, f.anto.ID, task.ID); ok {
		t.Error("share survived board deletion")
	}

	if err := f.svc.Boards.DeleteBoard(f.ctx, f.marianna.ID, f.board(t, f.marianna.ID, entities.CategoryUniversity).ID); err != nil {
		t.Fatal(err)
	}
	last := f.board(t, f.marianna.ID, entities.CategoryFreeTime)
	if err := f.svc.Boards.DeleteBoard(f.ctx, f.marianna.ID, last.ID); !errors.Is(err, entities.ErrLastBoard) {
		t.Errorf("got %v, want ErrLastBoard", err)
	}
}

func TestUpdateBoard(t *testing.T) {
	f := newFixture(t)
	board := f.board(t, f.marianna.ID, entities.CategoryFreeTime)

	got, err := f.svc.Boards.UpdateBoard(f.ctx, f.marianna.ID, board.ID, ports.UpdateBoardRequest{Description: "  weekends  "})
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "weekends" || got.Category != entities.CategoryFreeTime {
		t.Errorf("updated board %+v", got)
	}

	if _, err := f.svc.Boards.UpdateBoard(f.ctx, f.anto.ID, board.ID, ports.UpdateBoardRequest{Description: "mine"}); !errors.Is(err, entities.ErrBoardNotFound) {
		t.Errorf("foreign update: got %v, want ErrBoardNotFound", err)
	}
}

func TestMarkBoardCompleted(t *testing.T) {
	f := newFixture(t)
	first := f.task(t, f.marianna.ID, entities.CategoryUniversity, "Thesis", "2026-11-02", "outline", "draft")
	second := f.task(t, f.marianna.ID, entities.CategoryUniversity, "Exam", "2026-11-09")
	other := f.task(t, f.marianna.ID, entities.CategoryWork, "Slides", "2026-11-02")

	n, err := f.svc.Boards.MarkBoardCompleted(f.ctx, f.marianna.ID, f.board(t, f.marianna.ID, entities.CategoryUniversity).ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("completed %d tasks, want 2", n)
	}

	for _, tc := range []struct {
		task *entities.Task
		want bool
	}{{first, true}, {second, true}, {other, false}} {
		got, err := f.svc.Tasks.GetTask(f.ctx, f.marianna.ID, tc.task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.IsCompleted() != tc.want {
			t.Errorf("%s completed = %v, want %v", got.Title, got.IsCompleted(), tc.want)
		}
		if tc.want && got.HasChecklist() && !got.ChecklistCompleted() {
			t.Errorf("%s has open activities", got.Title)
		}
	}

	if _, err := f.svc.Boards.MarkBoardCompleted(f.ctx, f.anto.ID, f.board(t, f.marianna.ID, entities.CategoryWork).ID); !errors.Is(err, entities.ErrBoardNotFound) {
		t.Errorf("foreign mark: got %v, want ErrBoardNotFound", err)
	}
}
