package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/repo"
)

// EventPruneJob deletes persisted events older than the configured
// keep window.
type EventPruneJob struct {
	events   *repo.EventRepo
	keepDays int64
}

func NewEventPruneJob(events *repo.EventRepo, keepDays int64) *EventPruneJob {
	return &EventPruneJob{events: events, keepDays: keepDays}
}

func (j *EventPruneJob) Name() string {
	return "event_prune"
}

func (j *EventPruneJob) Run(ctx context.Context) error {
	if j.events == nil || j.keepDays <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(j.keepDays) * 24 * time.Hour).UnixMilli()
	pruned, err := j.events.PruneBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		logutil.GetLogger(ctx).Info("pruned events", zap.Int64("count", pruned))
	}
	return nil
}
