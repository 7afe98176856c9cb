package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/service"
)

// CleanupJob force-expires stalled rentals and evicts terminal
// verifications past the retention window.
type CleanupJob struct {
	coordinator *service.Coordinator
	retention   time.Duration
}

func NewCleanupJob(coordinator *service.Coordinator, retention time.Duration) *CleanupJob {
	return &CleanupJob{coordinator: coordinator, retention: retention}
}

func (j *CleanupJob) Name() string {
	return "verification_cleanup"
}

func (j *CleanupJob) Run(ctx context.Context) error {
	if j.coordinator == nil {
		return nil
	}
	expired, evicted := j.coordinator.SweepExpired(ctx, j.retention)
	if expired > 0 || evicted > 0 {
		logutil.GetLogger(ctx).Info("cleanup sweep",
			zap.Int("expired", expired),
			zap.Int("evicted", evicted),
		)
	}
	return nil
}
