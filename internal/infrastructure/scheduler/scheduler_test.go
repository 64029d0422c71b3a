package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
)

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 3, c.err
}

func TestScheduleTokenCleanup(t *testing.T) {
	s := New(logger.NewNop())

	if _, err := s.ScheduleTokenCleanup("not a spec", &countingCleaner{}); err == nil {
		t.Error("invalid spec accepted")
	}

	cleaner := &countingCleaner{}
	if _, err := s.ScheduleTokenCleanup("@every 1s", cleaner); err != nil {
		t.Fatal(err)
	}
	if n := s.Entries(); n != 1 {
		t.Fatalf("%d entries, want 1", n)
	}

	s.Start()
	deadline := time.Now().Add(5 * time.Second)
	for cleaner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()

	if cleaner.calls.Load() == 0 {
		t.Error("cleanup job never ran")
	}
}

func TestRunTokenCleanupSurvivesErrors(t *testing.T) {
	s := New(logger.NewNop())
	cleaner := &countingCleaner{err: errors.New("database is down")}

	s.RunTokenCleanup(context.Background(), cleaner)
	s.RunTokenCleanup(context.Background(), cleaner)

	if got := cleaner.calls.Load(); got != 2 {
		t.Errorf("cleaner called %d times, want 2", got)
	}
}
