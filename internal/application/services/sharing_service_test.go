package services_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/taskmaster/bacheca/internal/domain/entities"
)

func TestShareIsIdempotent(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryUniversity, "Study Ch.7", "2026-11-02")

	for i := 0; i < 2; i++ {
		if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
			t.Fatalf("share #%d: %v", i+1, err)
		}
	}

	users, err := f.svc.Sharing.ListSharedWith(f.ctx, f.marianna.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	var logins []string
	for _, u := range users {
		logins = append(logins, u.Login)
	}
	if diff := cmp.Diff([]string{"anto"}, logins); diff != "" {
		t.Errorf("shared with mismatch (-want +got):\n%s", diff)
	}
}

func TestShareThenRevoke(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryUniversity, "Study Ch.7", "2026-11-02")

	if got := f.visibleTitles(t, f.anto.ID, entities.CategoryUniversity); len(got) != 0 {
		t.Fatalf("recipient sees %v before share", got)
	}

	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Study Ch.7"}, f.visibleTitles(t, f.anto.ID, entities.CategoryUniversity)); diff != "" {
		t.Errorf("recipient view after share (-want +got):\n%s", diff)
	}

	if err := f.svc.Sharing.Unshare(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.visibleTitles(t, f.anto.ID, entities.CategoryUniversity); len(got) != 0 {
		t.Errorf("recipient still sees %v after revoke", got)
	}
	if diff := cmp.Diff([]string{"Study Ch.7"}, f.visibleTitles(t, f.marianna.ID, entities.CategoryUniversity)); diff != "" {
		t.Errorf("author view after revoke (-want +got):\n%s", diff)
	}
}

func TestShareSurfacesInMatchingCategoryOnly(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryWork, "Quarterly report", "2026-11-02")

	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"Quarterly report"}, f.visibleTitles(t, f.anto.ID, entities.CategoryWork)); diff != "" {
		t.Errorf("WORK view (-want +got):\n%s", diff)
	}
	for _, c := range []entities.BoardCategory{entities.CategoryUniversity, entities.CategoryFreeTime} {
		if got := f.visibleTitles(t, f.anto.ID, c); len(got) != 0 {
			t.Errorf("%s view: got %v, want none", c, got)
		}
	}
}

func TestShareRejections(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryFreeTime, "Climbing", "2026-11-02")
	stranger := f.account(t, "Carla", "carla", "secret")

	if err := f.svc.Boards.DeleteBoard(f.ctx, stranger.ID, f.board(t, stranger.ID, entities.CategoryFreeTime).ID); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		actor  uuid.UUID
		target uuid.UUID
		want   error
	}{
		{"self", f.marianna.ID, f.marianna.ID, entities.ErrCannotShareWithSelf},
		{"recipient reshares", f.anto.ID, stranger.ID, entities.ErrForbidden},
		{"non viewer", stranger.ID, f.anto.ID, entities.ErrTaskNotFound},
		{"unknown user", f.marianna.ID, uuid.New(), entities.ErrUserNotFound},
		{"no matching board", f.marianna.ID, stranger.ID, entities.ErrNoMatchingBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Sharing.Share(f.ctx, tt.actor, task.ID, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnshareAbsentIsNoop(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryWork, "Slides", "2026-11-02")

	if err := f.svc.Sharing.Unshare(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Errorf("unshare of absent edge: %v", err)
	}
	if err := f.svc.Sharing.Unshare(f.ctx, f.anto.ID, task.ID, f.anto.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("unshare by non viewer: got %v", err)
	}
}

func TestListSharedWithAndSharedTasksFor(t *testing.T) {
	f := newFixture(t)
	carla := f.account(t, "Carla", "carla", "secret")
	beppe := f.account(t, "Beppe", "beppe", "secret")
	first := f.task(t, f.marianna.ID, entities.CategoryWork, "Slides", "2026-11-02")
	second := f.task(t, f.marianna.ID, entities.CategoryUniversity, "Thesis", "2026-12-02")

	if err := f.svc.Sharing.ShareWithMany(f.ctx, f.marianna.ID, first.ID, []uuid.UUID{carla.ID, f.anto.ID, beppe.ID, carla.ID}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, second.ID, carla.ID); err != nil {
		t.Fatal(err)
	}

	// a recipient may look at the share list too
	users, err := f.svc.Sharing.ListSharedWith(f.ctx, carla.ID, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Name)
		if u.PasswordHash != "" {
			t.Errorf("password hash leaked for %s", u.Login)
		}
	}
	if diff := cmp.Diff([]string{"Antonietta", "Beppe", "Carla"}, names); diff != "" {
		t.Errorf("shared with (-want +got):\n%s", diff)
	}

	ids, err := f.svc.Sharing.ListSharedTasksFor(f.ctx, carla.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{first.ID, second.ID}, ids); diff != "" {
		t.Errorf("shared tasks (-want +got):\n%s", diff)
	}

	own, err := f.svc.Sharing.ListSharedTasksFor(f.ctx, f.marianna.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 0 {
		t.Errorf("authored tasks reported as shared: %v", own)
	}
}

func TestShareWithManyStopsAtFirstError(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryWork, "Slides", "2026-11-02")

	err := f.svc.Sharing.ShareWithMany(f.ctx, f.marianna.ID, task.ID, []uuid.UUID{f.anto.ID, f.marianna.ID})
	if !errors.Is(err, entities.ErrCannotShareWithSelf) {
		t.Fatalf("got %v, want ErrCannotShareWithSelf", err)
	}

	ok, err := f.repos.Shares.Exists(f.ctx, f.anto.ID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("share before the failing target was not kept")
	}

	var verr *entities.ValidationError
	if err := f.svc.Sharing.ShareWithMany(f.ctx, f.marianna.ID, task.ID, nil); !errors.As(err, &verr) {
		t.Errorf("empty targets: got %v, want ValidationError", err)
	}
}

func TestPurgeForTask(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.marianna.ID, entities.CategoryWork, "Slides", "2026-11-02")
	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, task.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}
	// warm the recipient's cached view
	f.visibleTitles(t, f.anto.ID, entities.CategoryWork)

	if err := f.svc.Sharing.PurgeForTask(f.ctx, task.ID); err != nil {
		t.Fatal(err)
	}

	if got := f.visibleTitles(t, f.anto.ID, entities.CategoryWork); len(got) != 0 {
		t.Errorf("recipient still sees %v after purge", got)
	}
}
