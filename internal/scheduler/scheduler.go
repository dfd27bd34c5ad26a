// Package scheduler runs a task at a fixed period on one background goroutine.
//
// A Scheduler is either idle or armed. Start arms it, Stop returns it to idle.
// Both are safe to call from any goroutine and repeated calls are no-ops.
// Firings of one Scheduler never overlap, including across a Stop/Start cycle:
// a new loop waits for the previous one to exit before its first firing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/dronewatch/internal/metrics"
)

var (
	ErrNilTask       = errors.New("scheduler: nil task")
	ErrInvalidPeriod = errors.New("scheduler: period must be positive")
)

// Task is the unit of scheduled work. Its context is cancelled by Stop.
type Task func(ctx context.Context) error

// Scheduler drives a single Task.
type Scheduler struct {
	logger  *zap.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle Scheduler. logger and collector may be nil.
func New(logger *zap.Logger, collector *metrics.Collector) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger.Named("scheduler"), metrics: collector}
}

// Start arms the scheduler: task first runs after initialDelay and then every
// period until Stop is called or ctx ends. Calling Start while armed logs and
// returns nil without touching the running schedule.
func (s *Scheduler) Start(ctx context.Context, task Task, initialDelay, period time.Duration) error {
	if task == nil {
		return ErrNilTask
	}
	if period <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidPeriod, period)
	}
	if initialDelay < 0 {
		initialDelay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Debug("start ignored, already running")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	prev := s.done
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Debug("scheduler started",
		zap.Duration("initial_delay", initialDelay),
		zap.Duration("period", period))
	go s.loop(runCtx, task, initialDelay, period, prev, done)
	return nil
}

// Stop disarms the scheduler and cancels the running task's context. It does
// not wait for an in-flight task to return; use Wait for that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.logger.Debug("scheduler stopped")
}

// IsRunning reports whether the scheduler is armed.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Wait blocks until the most recently started loop has exited. It returns
// immediately when Start was never called.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, task Task, initialDelay, period time.Duration, prev, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		// The parent context ended without Stop: go back to idle.
		if s.done == done && s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
		close(done)
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	s.fire(ctx, task)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, task)
		}
	}
}

// fire runs task once, converting a panic into a logged error.
func (s *Scheduler) fire(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			s.logger.Error("scheduled task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		if ctx.Err() != nil && err != nil {
			s.logger.Debug("scheduled task interrupted", zap.Error(err))
			return
		}
		s.metrics.RecordRefresh(err)
	}()

	err = task(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("scheduled task failed", zap.Error(err))
	}
}
