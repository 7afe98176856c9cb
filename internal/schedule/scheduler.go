// Package schedule runs the engine's maintenance jobs on cron specs.
package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronScheduler drives registered jobs on standard 5-field cron specs.
// A firing is skipped when the previous run of the same job has not
// finished yet.
type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		ctx:  context.Background(),
	}
}

func (s *CronScheduler) AddJob(job Job, spec string) error {
	runner := &jobRunner{job: job, scheduler: s}
	if _, err := s.cron.AddJob(spec, runner); err != nil {
		logutil.GetLogger(context.Background()).Error("schedule job failed",
			zap.String("job", job.Name()), zap.String("spec", spec), zap.Error(err))
		return err
	}
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

// Start begins firing jobs; ctx is handed to every job run.
func (s *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		s.ctx = ctx
	}
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

type jobRunner struct {
	job       Job
	scheduler *CronScheduler
	running   atomic.Bool
}

func (r *jobRunner) Run() {
	logger := logutil.GetLogger(r.scheduler.ctx).With(zap.String("job", r.job.Name()))
	if !r.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return
	}
	defer r.running.Store(false)

	start := time.Now()
	logger.Info("job started")
	err := r.job.Run(r.scheduler.ctx)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("job finished", zap.Duration("duration", time.Since(start)))
}
