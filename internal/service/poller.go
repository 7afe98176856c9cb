package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/model"
	"github.com/smsline/smsline/internal/pkg/timeutil"
	"github.com/smsline/smsline/internal/provider"
)

// poller owns one verification's lifecycle: it is the only writer of
// the entry's business fields besides Cancel/Complete on the
// coordinator. One poll is in flight at a time by construction.
type poller struct {
	c *Coordinator
	e *entry
}

func (p *poller) run(ctx context.Context) {
	timer := time.NewTimer(p.c.opts.PollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if done := p.tick(ctx); done {
			return
		}
		timer.Reset(p.c.opts.PollInterval)
	}
}

// tick performs one poll cycle and returns true once the verification
// is terminal.
func (p *poller) tick(ctx context.Context) bool {
	e := p.e
	now := timeutil.NowUnixMilli()

	e.mu.Lock()
	if e.v.Status.Terminal() {
		e.mu.Unlock()
		return true
	}
	if now > e.v.ExpiresAt {
		id := e.v.ID
		p.c.markTerminalLocked(ctx, e, model.StatusExpired)
		e.mu.Unlock()
		p.c.providerCancelAsync(id)
		return true
	}
	id := e.v.ID
	e.mu.Unlock()

	outcome, err := p.c.client.Poll(ctx, id)
	now = timeutil.NowUnixMilli()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.v.Status.Terminal() {
		// Cancelled while the poll was in flight.
		return true
	}
	e.v.Attempts++
	e.v.LastPolledAt = now

	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		// Transient by policy: a failed check is "no outcome this
		// tick", never a verification failure on its own.
		logutil.GetLogger(ctx).Warn("status poll failed",
			zap.String("verification_id", id),
			zap.Int("attempt", e.v.Attempts),
			zap.Error(err),
		)
		return p.applyCeilingLocked(ctx)
	}

	switch outcome.Kind {
	case provider.OutcomeCode:
		if outcome.Code != e.v.LastCode() {
			e.v.Codes = append(e.v.Codes, model.Code{
				Value:      outcome.Code,
				FullText:   outcome.FullText,
				ReceivedAt: now,
			})
			e.v.Status = model.StatusCodeReceived
			e.signalLocked()
			p.c.emitLocked(ctx, e, model.EventTypeNewCode, outcome.Code)
		} else {
			// Same value as the most recent code: no mutation, no event.
			logutil.GetLogger(ctx).Debug("same code repeated",
				zap.String("verification_id", id),
				zap.String("code", outcome.Code),
			)
		}
	case provider.OutcomeWaiting:
		e.v.Status = model.StatusWaiting
	case provider.OutcomeExpired:
		p.c.markTerminalLocked(ctx, e, model.StatusExpired)
		return true
	case provider.OutcomeCancelled:
		p.c.markTerminalLocked(ctx, e, model.StatusCancelled)
		return true
	}
	return p.applyCeilingLocked(ctx)
}

// applyCeilingLocked fails a verification that burned its attempt
// budget without ever producing a code. Callers hold e.mu.
func (p *poller) applyCeilingLocked(ctx context.Context) bool {
	e := p.e
	if len(e.v.Codes) > 0 || e.v.Attempts < p.c.opts.MaxAttempts {
		return false
	}
	id := e.v.ID
	p.c.markTerminalLocked(ctx, e, model.StatusFailed)
	p.c.providerCancelAsync(id)
	return true
}
