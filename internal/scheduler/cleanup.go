package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cleaner removes usage rows whose window has expired.
type Cleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// CleanupScheduler runs the expired row sweep on a cron schedule. It backs up
// the store's own TTL expiry.
type CleanupScheduler struct {
	cleaner  Cleaner
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *zap.Logger
	running  bool
}

func NewCleanupScheduler(cleaner Cleaner, schedule string, logger *zap.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		cleaner:  cleaner,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		logger:   logger.Named("cleanup"),
	}
}

// Start validates the schedule and begins running the sweep. An empty
// schedule disables the scheduler. The scheduler stops when ctx is done.
//
// Common expressions:
//   - "@hourly"      - every hour
//   - "15 * * * *"   - every hour at minute 15
//   - "0 */6 * * *"  - every 6 hours
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("cleanup schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("cleanup scheduler started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce executes one sweep immediately.
func (s *CleanupScheduler) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		s.logger.Error("cleanup failed", zap.Error(err))
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("cleanup completed", zap.Int64("deleted_count", deleted))
	} else {
		s.logger.Debug("cleanup completed, no rows deleted")
	}
	return deleted, nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("cleanup scheduler stopped")
	}
}

func (s *CleanupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when not scheduled.
func (s *CleanupScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
