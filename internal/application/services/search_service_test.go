package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/taskmaster/bacheca/internal/domain/entities"
	"github.com/taskmaster/bacheca/internal/ports"
)

func TestSearchByTerm(t *testing.T) {
	f := newFixture(t)
	f.task(t, f.marianna.ID, entities.CategoryWork, "Quarterly REPORT", "2026-12-01")
	shared := f.task(t, f.marianna.ID, entities.CategoryUniversity, "Thesis", "2026-11-15")
	if _, err := f.svc.Tasks.UpdateTask(f.ctx, f.marianna.ID, shared.ID, ports.UpdateTaskRequest{
		Title:       "Thesis",
		Description: "report for the advisor",
		DueDate:     "2026-11-15",
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Sharing.Share(f.ctx, f.marianna.ID, shared.ID, f.anto.ID); err != nil {
		t.Fatal(err)
	}
	f.task(t, f.anto.ID, entities.CategoryFreeTime, "Book report", "2026-11-20", "read")

	tests := []struct {
		name string
		user *entities.User
		term string
		want []string
	}{
		{"author sees own tasks by due date", f.marianna, "report", []string{"Thesis", "Quarterly REPORT"}},
		{"recipient sees shared and own", f.anto, "Report", []string{"Thesis", "Book report"}},
		{"no match", f.anto, "gardening", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Search.SearchByTerm(f.ctx, tt.user.ID, tt.term)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, titles(got)); diff != "" {
				t.Errorf("results (-want +got):\n%s", diff)
			}
		})
	}

	var verr *entities.ValidationError
	if _, err := f.svc.Search.SearchByTerm(f.ctx, f.anto.ID, "   "); !errors.As(err, &verr) {
		t.Errorf("blank term: got %v, want ValidationError", err)
	}
}

func TestSearchDueBy(t *testing.T) {
	f := newFixture(t)
	f.task(t, f.marianna.ID, entities.CategoryWork, "Late", "2026-12-24")
	f.task(t, f.marianna.ID, entities.CategoryWork, "On the day", "2026-11-02", "prepare")
	f.task(t, f.marianna.ID, entities.CategoryFreeTime, "Early", "2026-10-30")

	day := time.Date(2026, time.November, 2, 18, 30, 0, 0, time.UTC)
	got, err := f.svc.Search.SearchDueBy(f.ctx, f.marianna.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Early", "On the day"}, titles(got)); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if n := len(got[1].Checklist); n != 1 {
		t.Errorf("checklist not attached: %d activities", n)
	}

	none, err := f.svc.Search.SearchDueBy(f.ctx, f.anto.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("other user sees %v", titles(none))
	}
}

func TestDueTodayIncludesOverdue(t *testing.T) {
	f := newFixture(t)
	today := time.Now().Format(ports.DateLayout)
	f.task(t, f.marianna.ID, entities.CategoryWork, "Overdue", "2000-01-01")
	f.task(t, f.marianna.ID, entities.CategoryWork, "Today", today)
	f.task(t, f.marianna.ID, entities.CategoryWork, "Someday", "2999-01-01")

	got, err := f.svc.Search.DueToday(f.ctx, f.marianna.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Overdue", "Today"}, titles(got)); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
}
