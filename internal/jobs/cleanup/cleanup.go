package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultPendingTTL = 72 * time.Hour

type DepositExpirer interface {
	ExpirePending(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// Job fails deposit requests nobody confirmed within the pending TTL, so
// stale references stop showing as "awaiting transfer".
type Job struct {
	deposits   DepositExpirer
	pendingTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewDepositExpiryJob(deposits DepositExpirer, pendingTTL time.Duration, logger *zap.Logger) *Job {
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		deposits:   deposits,
		pendingTTL: pendingTTL,
		now:        time.Now,
		logger:     logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.deposits == nil {
		return nil
	}

	now := j.now().UTC()
	cutoff := now.Add(-j.pendingTTL)
	expired, err := j.deposits.ExpirePending(ctx, cutoff, now)
	if err != nil {
		return fmt.Errorf("expire pending deposits: %w", err)
	}
	if expired > 0 {
		j.logger.Info("expired stale pending deposits", zap.Int64("expired", expired), zap.Time("cutoff", cutoff))
	}
	return nil
}
