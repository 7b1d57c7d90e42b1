// Package batch runs capture pipelines for many inputs under a concurrency cap.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"eden-backend/application/services"
	pkgerrors "eden-backend/pkg/errors"
	"eden-backend/pkg/observability"
)

// DefaultConcurrency is the number of pipelines allowed in flight at once.
const DefaultConcurrency = 3

const cancelledMessage = "cancelled"

// Pipeline processes a single input end to end.
type Pipeline interface {
	Capture(ctx context.Context, req services.CaptureRequest) (*services.CaptureResult, error)
}

// RunOptions describes where a batch came from.
type RunOptions struct {
	Source string // capture source for metrics and events, e.g. "batch"
	Label  string // reported as the event source, e.g. an uploaded file name
}

// Runner executes inputs with at most Concurrency pipelines in flight. One
// input's failure never affects the others.
type Runner struct {
	pipeline    Pipeline
	concurrency atomic.Int64
	metrics     *observability.Collector
	logger      *zap.Logger
}

// NewRunner creates a runner. Non-positive concurrency uses DefaultConcurrency.
func NewRunner(pipeline Pipeline, concurrency int, metrics *observability.Collector, logger *zap.Logger) *Runner {
	r := &Runner{pipeline: pipeline, metrics: metrics, logger: logger}
	r.SetConcurrency(concurrency)
	return r
}

// SetConcurrency changes the cap for batches started afterwards.
func (r *Runner) SetConcurrency(k int) {
	if k <= 0 {
		k = DefaultConcurrency
	}
	r.concurrency.Store(int64(k))
}

// Concurrency returns the cap applied to new batches.
func (r *Runner) Concurrency() int {
	return int(r.concurrency.Load())
}

// Run processes inputs and reports progress through onEvent: one start event,
// one item or error event per input, connections events for existing items
// whose links changed, and exactly one complete event. onEvent calls never
// overlap. When ctx is cancelled, inputs not yet started are counted as failed.
func (r *Runner) Run(ctx context.Context, userID string, inputs []Input, opts RunOptions, onEvent func(Event)) Result {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	if opts.Source == "" {
		opts.Source = services.SourceBatch
	}

	st := &batchState{
		total:   len(inputs),
		source:  opts.Label,
		onEvent: onEvent,
	}
	r.metrics.RecordBatch(opts.Source, st.total)
	r.logger.Info("Batch started",
		zap.String("userID", userID),
		zap.String("source", opts.Source),
		zap.Int("total", st.total),
		zap.Int("concurrency", r.Concurrency()),
	)
	st.emit(Event{Type: EventStart})

	sem := semaphore.NewWeighted(int64(r.Concurrency()))
	var g errgroup.Group

	for i, in := range inputs {
		if in.Err != nil {
			st.fail(in.label(), pkgerrors.UserMessage(in.Err))
			r.metrics.RecordPipeline(opts.Source, "failed")
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			for _, rest := range inputs[i:] {
				st.fail(rest.label(), cancelledMessage)
				r.metrics.RecordPipeline(opts.Source, "cancelled")
			}
			r.logger.Info("Batch cancelled",
				zap.String("userID", userID),
				zap.Int("not_started", len(inputs)-i),
			)
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			r.metrics.PipelineStarted()
			defer r.metrics.PipelineFinished()

			res, err := r.pipeline.Capture(ctx, services.CaptureRequest{
				UserID:     userID,
				URL:        in.URL,
				Extraction: in.Extraction,
				TitleHint:  in.Title,
				Source:     opts.Source,
			})
			if err != nil {
				msg := pkgerrors.UserMessage(err)
				if errors.Is(err, context.Canceled) {
					msg = cancelledMessage
				}
				r.logger.Warn("Batch input failed",
					zap.String("userID", userID),
					zap.String("input", in.label()),
					zap.Error(err),
				)
				st.fail(in.label(), msg)
				r.metrics.RecordPipeline(opts.Source, "failed")
				return nil
			}
			st.succeed(in.label(), res)
			r.metrics.RecordPipeline(opts.Source, "success")
			return nil
		})
	}

	_ = g.Wait()

	result := st.complete()
	r.logger.Info("Batch complete",
		zap.String("userID", userID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total),
	)
	return result
}

// batchState serializes counter updates with event emission so every event
// carries a consistent snapshot.
type batchState struct {
	mu      sync.Mutex
	total   int
	success int
	failed  int
	source  string
	onEvent func(Event)
}

func (s *batchState) emit(e Event) {
	e.Total, e.Success, e.Failed = s.total, s.success, s.failed
	if e.Source == "" {
		e.Source = s.source
	}
	s.onEvent(e)
}

func (s *batchState) succeed(label string, res *services.CaptureResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.success++
	s.emit(Event{Type: EventItem, Item: res.Item, ItemID: res.Item.ID, URL: label})
	for _, updated := range res.Updated {
		s.emit(Event{
			Type:              EventConnections,
			ItemID:            updated.ID,
			Connections:       updated.Connections,
			ConnectionReasons: updated.ConnectionReasons,
		})
	}
}

func (s *batchState) fail(label, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed++
	s.emit(Event{Type: EventError, URL: label, Message: message})
}

func (s *batchState) complete() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emit(Event{Type: EventComplete})
	return Result{Success: s.success, Failed: s.failed, Total: s.total}
}
