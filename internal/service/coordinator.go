// Package service implements the verification engine: the registry of
// rented lines, one poller per line, the observer stream and the
// coordinator façade callers talk to.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/smsline/smsline/internal/model"
	appErr "github.com/smsline/smsline/internal/pkg/errors"
	"github.com/smsline/smsline/internal/pkg/timeutil"
	"github.com/smsline/smsline/internal/provider"
)

type Options struct {
	ServiceCode         string
	MaxPrice            float64
	Country             int
	PollInterval        time.Duration
	VerificationTimeout time.Duration
	MaxAttempts         int
}

func (o *Options) normalize() {
	if o.ServiceCode == "" {
		o.ServiceCode = "ds"
	}
	if o.MaxPrice <= 0 {
		o.MaxPrice = 0.50
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.VerificationTimeout <= 0 {
		o.VerificationTimeout = 3 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 40
	}
}

// Coordinator is the public façade over the engine: rent a line, read
// snapshots, await codes, cancel, reassign.
type Coordinator struct {
	client   provider.Client
	balance  *provider.BalanceCache
	registry *Registry
	stream   *Stream
	recorder *EventRecorder
	opts     Options

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewCoordinator(client provider.Client, recorder *EventRecorder, opts Options) *Coordinator {
	opts.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		client:   client,
		registry: NewRegistry(),
		stream:   NewStream(),
		recorder: recorder,
		opts:     opts,
		baseCtx:  ctx,
		stop:     cancel,
	}
	if cached, ok := client.(*provider.BalanceCache); ok {
		c.balance = cached
	}
	return c
}

// Rent provisions a line, registers the verification and starts its
// poller. Provider rejections come back as typed errors.
func (c *Coordinator) Rent(ctx context.Context, serviceCode string, maxPrice float64, correlationID string) (*model.Verification, error) {
	if correlationID == "" {
		return nil, appErr.ErrInvalid
	}
	if serviceCode == "" {
		serviceCode = c.opts.ServiceCode
	}
	if maxPrice <= 0 {
		maxPrice = c.opts.MaxPrice
	}
	if err := c.checkBalance(ctx, maxPrice); err != nil {
		return nil, err
	}

	rental, err := c.client.Rent(ctx, provider.RentRequest{
		ServiceCode: serviceCode,
		MaxPrice:    maxPrice,
		Country:     c.opts.Country,
	})
	if err != nil {
		return nil, err
	}

	cost := maxPrice
	if svc, ok := LookupService(serviceCode); ok && svc.Price <= maxPrice {
		cost = svc.Price
	}
	now := timeutil.NowUnixMilli()
	v := &model.Verification{
		ID:            rental.ID,
		CorrelationID: correlationID,
		PhoneNumber:   rental.PhoneNumber,
		PhoneDisplay:  model.FormatPhone(rental.PhoneNumber),
		ServiceCode:   serviceCode,
		Status:        model.StatusRenting,
		RentedAt:      now,
		ExpiresAt:     now + c.opts.VerificationTimeout.Milliseconds(),
		CostReserved:  cost,
	}
	e := newEntry(v)
	if err := c.registry.Insert(e); err != nil {
		return nil, err
	}

	pollCtx, stopPoll := context.WithCancel(c.baseCtx)
	e.stopPoll = stopPoll
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		(&poller{c: c, e: e}).run(pollCtx)
	}()

	logutil.GetLogger(ctx).Info("line rented",
		zap.String("verification_id", v.ID),
		zap.String("correlation_id", correlationID),
		zap.String("phone", v.PhoneNumber),
		zap.String("service", serviceCode),
		zap.Float64("cost_reserved", cost),
	)
	return e.snapshot(), nil
}

// checkBalance is advisory: a stale low reading is re-read once past
// the cache; the provider's own rejection stays authoritative.
func (c *Coordinator) checkBalance(ctx context.Context, maxPrice float64) error {
	amount, err := c.client.CheckBalance(ctx)
	if err != nil {
		if errors.Is(err, appErr.ErrBadKey) {
			return err
		}
		logutil.GetLogger(ctx).Warn("balance check failed, relying on provider rejection", zap.Error(err))
		return nil
	}
	if amount >= maxPrice {
		return nil
	}
	if c.balance != nil {
		c.balance.Invalidate()
		if amount, err = c.client.CheckBalance(ctx); err == nil && amount >= maxPrice {
			return nil
		}
	}
	return appErr.ErrInsufficientBalance
}

// Snapshot returns a read-only copy of one verification.
func (c *Coordinator) Snapshot(id string) (*model.Verification, error) {
	e, err := c.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (c *Coordinator) ListActive() []*model.Verification {
	return c.registry.ListActive()
}

func (c *Coordinator) ListByCorrelation(correlationID string) []*model.Verification {
	return c.registry.ListByCorrelation(correlationID)
}

// AwaitCode blocks until an unconsumed code is available, the
// verification goes terminal, or the caller-scoped timeout elapses.
// Each delivered code is consumed exactly once across all awaiters, so
// a second call waits for the next distinct code.
func (c *Coordinator) AwaitCode(ctx context.Context, id string, timeout time.Duration) (string, error) {
	e, err := c.registry.Get(id)
	if err != nil {
		return "", err
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		e.mu.Lock()
		if e.consumed < len(e.v.Codes) {
			code := e.v.Codes[e.consumed].Value
			e.consumed++
			e.mu.Unlock()
			return code, nil
		}
		if e.v.Status.Terminal() {
			status := e.v.Status
			e.mu.Unlock()
			return "", terminalError(status)
		}
		notify := e.notify
		e.mu.Unlock()

		select {
		case <-notify:
		case <-deadline:
			return "", appErr.ErrAwaitTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Cancel marks the verification cancelled locally and stops its poller;
// the provider refund is best-effort. Cancelling an already-cancelled
// verification is a no-op.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	e, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.v.Status == model.StatusCancelled {
		e.mu.Unlock()
		return nil
	}
	if e.v.Status.Terminal() {
		e.mu.Unlock()
		return appErr.ErrConflict
	}
	c.markTerminalLocked(ctx, e, model.StatusCancelled)
	stopPoll := e.stopPoll
	e.mu.Unlock()

	if stopPoll != nil {
		stopPoll()
	}
	c.providerCancelAsync(id)
	return nil
}

// Complete closes a verification that has received at least one code,
// marking the rental done at the provider so the number is released.
func (c *Coordinator) Complete(ctx context.Context, id string) error {
	e, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.v.Status.Terminal() {
		e.mu.Unlock()
		return appErr.ErrConflict
	}
	if len(e.v.Codes) == 0 {
		e.mu.Unlock()
		return appErr.ErrInvalid
	}
	c.markTerminalLocked(ctx, e, model.StatusCompleted)
	stopPoll := e.stopPoll
	e.mu.Unlock()

	if stopPoll != nil {
		stopPoll()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		callCtx, cancel := context.WithTimeout(c.baseCtx, time.Minute)
		defer cancel()
		if err := c.client.MarkDone(callCtx, id); err != nil {
			logutil.GetLogger(callCtx).Warn("mark done failed",
				zap.String("verification_id", id), zap.Error(err))
		}
	}()
	return nil
}

// Keep pays for the number without a message so it stays usable.
func (c *Coordinator) Keep(ctx context.Context, id string) error {
	e, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	terminal := e.v.Status.Terminal()
	e.mu.Unlock()
	if terminal {
		return appErr.ErrConflict
	}
	return c.client.Keep(ctx, id)
}

// Reassign cancels the current primary line for a correlation id (if
// any) and rents a replacement carrying the same correlation id.
func (c *Coordinator) Reassign(ctx context.Context, correlationID string) (*model.Verification, error) {
	if correlationID == "" {
		return nil, appErr.ErrInvalid
	}
	serviceCode := ""
	if primary := c.registry.ActivePrimary(correlationID); primary != nil {
		snap := primary.snapshot()
		serviceCode = snap.ServiceCode
		if err := c.Cancel(ctx, snap.ID); err != nil && !errors.Is(err, appErr.ErrConflict) {
			return nil, err
		}
	}
	return c.Rent(ctx, serviceCode, 0, correlationID)
}

// Balance returns the account balance (through the cache when one is
// configured).
func (c *Coordinator) Balance(ctx context.Context) (float64, error) {
	return c.client.CheckBalance(ctx)
}

// Subscribe attaches an observer to the event stream.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	return c.stream.Subscribe(buffer)
}

type Summary struct {
	Balance   float64 `json:"balance"`
	Active    int     `json:"active"`
	WithCodes int     `json:"with_codes"`
	Total     int     `json:"total"`
}

// Status summarizes the account and the registry.
func (c *Coordinator) Status(ctx context.Context) (*Summary, error) {
	balance, err := c.client.CheckBalance(ctx)
	if err != nil {
		return nil, err
	}
	s := &Summary{Balance: balance}
	for _, e := range c.registry.entries() {
		snap := e.snapshot()
		s.Total++
		if !snap.Status.Terminal() {
			s.Active++
		}
		if len(snap.Codes) > 0 {
			s.WithCodes++
		}
	}
	return s, nil
}

// SweepExpired force-expires entries whose poller missed the deadline
// by more than two poll intervals, and evicts terminal entries older
// than the retention window. Driven by the maintenance job.
func (c *Coordinator) SweepExpired(ctx context.Context, retention time.Duration) (expired, evicted int) {
	now := timeutil.NowUnixMilli()
	grace := 2 * c.opts.PollInterval.Milliseconds()
	for _, e := range c.registry.entries() {
		e.mu.Lock()
		if !e.v.Status.Terminal() && now > e.v.ExpiresAt+grace {
			id := e.v.ID
			c.markTerminalLocked(ctx, e, model.StatusExpired)
			stopPoll := e.stopPoll
			e.mu.Unlock()
			if stopPoll != nil {
				stopPoll()
			}
			c.providerCancelAsync(id)
			expired++
			continue
		}
		e.mu.Unlock()
	}
	evictedIDs := c.registry.EvictTerminalBefore(now - retention.Milliseconds())
	if len(evictedIDs) > 0 {
		logutil.GetLogger(ctx).Info("evicted terminal verifications",
			zap.Int("count", len(evictedIDs)))
	}
	return expired, len(evictedIDs)
}

// Shutdown stops every poller and waits for them to exit.
func (c *Coordinator) Shutdown() {
	c.stop()
	c.wg.Wait()
}

// markTerminalLocked finalizes a verification's status, wakes awaiters
// and emits the terminal event. Callers hold e.mu.
func (c *Coordinator) markTerminalLocked(ctx context.Context, e *entry, status model.Status) {
	e.v.Status = status
	e.terminalAt = timeutil.NowUnixMilli()
	e.signalLocked()
	c.emitLocked(ctx, e, model.EventTypeTerminal, "")
}

// emitLocked publishes to the observer stream and hands the event to
// the persistence hook. Callers hold e.mu; neither path blocks.
func (c *Coordinator) emitLocked(ctx context.Context, e *entry, eventType, code string) {
	ev := Event{
		VerificationID: e.v.ID,
		CorrelationID:  e.v.CorrelationID,
		PhoneNumber:    e.v.PhoneNumber,
		Type:           eventType,
		Code:           code,
		Status:         e.v.Status,
		At:             timeutil.NowUnixMilli(),
	}
	c.stream.Publish(ctx, ev)
	if c.recorder != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
			defer cancel()
			c.recorder.Record(recordCtx, ev)
		}()
	}
}

// providerCancelAsync requests the provider-side cancel/refund without
// blocking the local transition; failure is logged only.
func (c *Coordinator) providerCancelAsync(id string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		callCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := c.client.Cancel(callCtx, id); err != nil {
			if errors.Is(err, appErr.ErrConflict) {
				logutil.GetLogger(callCtx).Debug("provider rental already settled",
					zap.String("verification_id", id))
				return
			}
			logutil.GetLogger(callCtx).Warn("provider cancel failed",
				zap.String("verification_id", id), zap.Error(err))
		}
	}()
}

func terminalError(status model.Status) error {
	switch status {
	case model.StatusExpired:
		return appErr.ErrExpired
	case model.StatusCancelled, model.StatusCompleted:
		return appErr.ErrCancelled
	case model.StatusFailed:
		return appErr.ErrFailed
	default:
		return appErr.ErrInternal
	}
}
