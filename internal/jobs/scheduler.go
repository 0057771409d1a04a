// Package jobs runs the cron-scheduled sentiment, bias, fundamentals, watchdog and pre-open jobs.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rewired-gh/voltwatch/internal/logger"
)

// Func is a scheduled unit of work.
type Func func(ctx context.Context) error

// Scheduler wraps a UTC cron. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron *cron.Cron

	mu  sync.Mutex
	ctx context.Context
}

func NewScheduler() *Scheduler {
	var log cron.Logger = cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		ctx: context.Background(),
	}
}

// Add registers fn under a standard 5-field spec. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if spec == "" {
		logger.Info("Job %s disabled (no schedule)", name)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	logger.Info("Job %s scheduled: %s", name, spec)
	return nil
}

func (s *Scheduler) run(name string, fn Func) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	if err := fn(ctx); err != nil {
		logger.Error("Job %s failed after %v: %v", name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	logger.Info("Job %s completed in %v", name, time.Since(start).Round(time.Millisecond))
}

// Start runs the cron in the background. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs up to the deadline of ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Timed out waiting for running jobs")
	}
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// cronLogger routes cron's key/value logs into the application logger.
// cron reports every wake-up at info level, so those go to debug.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron %s%s", msg, formatKV(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron %s: %v%s", msg, err, formatKV(keysAndValues))
}

func formatKV(keysAndValues []interface{}) string {
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}
