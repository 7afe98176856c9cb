package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/model"
	"github.com/smsline/smsline/internal/repo"
)

const recorderRetries = 2

// EventRecorder is the persistence hook: every NewCode/Terminal event is
// written to the sms_events table for external collaborators.
// Failures are retried once and then logged; they never block the
// engine.
type EventRecorder struct {
	events *repo.EventRepo
}

func NewEventRecorder(events *repo.EventRepo) *EventRecorder {
	return &EventRecorder{events: events}
}

func (r *EventRecorder) Record(ctx context.Context, ev Event) {
	if r == nil || r.events == nil {
		return
	}
	record := &model.SMSEvent{
		ID:             newID(),
		CorrelationID:  ev.CorrelationID,
		VerificationID: ev.VerificationID,
		PhoneNumber:    ev.PhoneNumber,
		EventType:      ev.Type,
		Code:           ev.Code,
		Status:         string(ev.Status),
		Ctime:          ev.At,
	}
	lastErr := r.events.Insert(ctx, record)
	for attempt := 0; lastErr != nil && attempt < recorderRetries; attempt++ {
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(200 * time.Millisecond):
			lastErr = r.events.Insert(ctx, record)
		}
		if lastErr == context.Canceled || lastErr == context.DeadlineExceeded {
			break
		}
	}
	if lastErr == nil {
		return
	}
	logutil.GetLogger(ctx).Error("persist event failed",
		zap.String("verification_id", ev.VerificationID),
		zap.String("type", ev.Type),
		zap.Error(lastErr),
	)
}
