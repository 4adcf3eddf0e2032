package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const trackingSweepJob = "public_tracking_sweep"

// Expirer removes stale public tracking projections
type Expirer interface {
	ExpirePublicTracking(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	expirer    Expirer
	locker     Locker
	retention  time.Duration
	instanceID string
}

// NewScheduler creates a new scheduler instance. locker may be nil when only one
// instance runs.
func NewScheduler(expirer Expirer, locker Locker, retention time.Duration) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if locker == nil {
		locker = localLocker{}
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		expirer:    expirer,
		locker:     locker,
		retention:  retention,
		instanceID: instanceID,
	}
}

// Start registers the tracking sweep on schedule and starts the cron loop
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.ExpireTracking); err != nil {
		return fmt.Errorf("failed to register tracking sweep: %w", err)
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "trackingSweep", schedule, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// ExpireTracking removes tracking projections of calls closed longer than the retention period
func (s *Scheduler) ExpireTracking() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.locker.TryAcquire(ctx, trackingSweepJob, s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for tracking sweep", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("tracking sweep already running on another instance, skipping")
		return
	}
	defer func() {
		if err := s.locker.Release(context.Background(), trackingSweepJob, s.instanceID); err != nil {
			zap.S().Warnw("failed to release tracking sweep lock", "error", err)
		}
	}()

	if _, err := s.expirer.ExpirePublicTracking(ctx, s.retention); err != nil {
		zap.S().Errorw("tracking sweep failed", "error", err)
	}
}
