package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const defaultInterval = time.Hour

// Schedule runs the job immediately and then every interval until the
// returned scheduler is shut down. Overlapping runs are skipped.
func Schedule(ctx context.Context, job *Job, interval time.Duration, logger *zap.Logger) (gocron.Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("cleanup job is nil")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := job.Run(ctx); err != nil {
				logger.Warn("deposit expiry run failed", zap.Error(err))
			}
		}),
		gocron.WithName("deposit-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("register deposit expiry job: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}
