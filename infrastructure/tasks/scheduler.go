// Package tasks runs background work on a fixed pool of workers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"eden-backend/pkg/observability"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("task queue is full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("task scheduler is closed")
)

// Task is a named unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config sizes the scheduler.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Scheduler executes submitted tasks on Workers goroutines. Each task gets
// its own timeout and panic recovery; failures are logged and counted, never
// propagated to the submitter.
type Scheduler struct {
	queue   chan Task
	timeout time.Duration
	metrics *observability.Collector
	logger  *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewScheduler starts the workers.
func NewScheduler(cfg Config, metrics *observability.Collector, logger *zap.Logger) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		queue:   make(chan Task, cfg.QueueSize),
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	return s
}

// Submit enqueues task without blocking.
func (s *Scheduler) Submit(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("task %q has no function", task.Name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.metrics.RecordBackgroundTask(task.Name, "dropped")
		return ErrClosed
	}

	select {
	case s.queue <- task:
		s.metrics.RecordBackgroundTask(task.Name, "submitted")
		return nil
	default:
		s.metrics.RecordBackgroundTask(task.Name, "dropped")
		s.logger.Warn("Background task dropped", zap.String("task", task.Name))
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. If ctx
// expires first, running tasks are cancelled.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for task := range s.queue {
		s.execute(id, task)
	}
}

func (s *Scheduler) execute(worker int, task Task) {
	ctx := s.baseCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.safeRun(ctx, task)
	fields := []zap.Field{
		zap.String("task", task.Name),
		zap.Int("worker", worker),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		s.metrics.RecordBackgroundTask(task.Name, "failed")
		s.logger.Error("Background task failed", append(fields, zap.Error(err))...)
		return
	}
	s.metrics.RecordBackgroundTask(task.Name, "succeeded")
	s.logger.Debug("Background task finished", fields...)
}

func (s *Scheduler) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %s: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
