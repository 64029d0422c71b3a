package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskmaster/bacheca/internal/infrastructure/logger"
)

// TokenCleaner purges refresh tokens that can no longer be used.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// Scheduler wraps cron-based housekeeping jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// New creates a scheduler. Specs use the standard five-field cron syntax
// plus descriptors such as "@every 1h".
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: log.WithComponent("scheduler"),
	}
}

// ScheduleTokenCleanup registers the refresh token purge under spec.
func (s *Scheduler) ScheduleTokenCleanup(spec string, cleaner TokenCleaner) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.RunTokenCleanup(ctx, cleaner)
	})
	if err != nil {
		return 0, fmt.Errorf("schedule token cleanup %q: %w", spec, err)
	}
	s.logger.Infow("Token cleanup scheduled", "spec", spec)
	return id, nil
}

// RunTokenCleanup runs one purge and logs its outcome.
func (s *Scheduler) RunTokenCleanup(ctx context.Context, cleaner TokenCleaner) {
	start := time.Now()
	n, err := cleaner.CleanupExpiredTokens(ctx)
	if err != nil {
		s.logger.Errorw("Token cleanup failed", "error", err)
		return
	}
	s.logger.Infow("Token cleanup finished", "removed", n, "duration_ms", time.Since(start).Milliseconds())
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
