// Package scheduler runs the ingestion jobs on cron schedules inside the
// server process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/ingest"
)

// Job is one ingestion run.
type Job interface {
	Run(ctx context.Context) (ingest.RunResult, error)
}

// Scheduler triggers registered jobs. A run that is still going when its
// next tick fires makes that tick a no-op.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler. Each run is bounded by timeout; zero means no
// bound beyond the scheduler's own lifetime.
func New(log *zap.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{log.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name on a standard five-field cron expression.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.log.Info("scheduler starting", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(name string, job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := job.Run(ctx)
	fields := []zap.Field{
		zap.String("job", name),
		zap.String("run_id", res.RunID),
		zap.Int("count", res.Count),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		s.log.Error("scheduled job failed", append(fields, zap.Error(err))...)
		return
	}
	s.log.Info("scheduled job finished", fields...)
}

// cronLogger routes the cron library's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}
