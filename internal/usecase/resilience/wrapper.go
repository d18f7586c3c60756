// Package resilience wraps a primary ranking engine with a deadline and
// automatic failover to a secondary engine.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/metrics"
)

// Engine names reported in EngineOutcome.
const (
	primaryName   = "primary"
	secondaryName = "secondary"
)

// Fallback reasons.
const (
	reasonTimeout = "timeout"
	reasonError   = "error"
)

// Wrapper decorates a primary engine with a deadline and failover to a
// secondary. The deadline uses context cancellation, so a timed-out primary
// call is actively canceled rather than left running in the background.
type Wrapper struct {
	primary   domain.Engine
	secondary domain.Engine
	deadline  time.Duration
	fallback  bool
	logger    *zap.Logger

	fallbackCount atomic.Int64
	timeoutCount  atomic.Int64
	errorCount    atomic.Int64
}

var _ domain.Engine = (*Wrapper)(nil)

// New creates a resilience wrapper. fallback=false makes primary failures
// propagate unchanged.
func New(primary, secondary domain.Engine, deadline time.Duration, fallback bool, logger *zap.Logger) *Wrapper {
	return &Wrapper{
		primary:   primary,
		secondary: secondary,
		deadline:  deadline,
		fallback:  fallback,
		logger:    logger,
	}
}

// IsReady reports readiness of the engine that would serve a request now.
func (w *Wrapper) IsReady() bool {
	if w.primary.IsReady() {
		return true
	}
	return w.fallback && w.secondary.IsReady()
}

// Search runs the primary under the deadline and fails over to the
// secondary on timeout or error. Every result carries an EngineOutcome
// audit trail.
func (w *Wrapper) Search(ctx context.Context, query string, topK int) (domain.RankedResult, error) {
	return w.run(ctx, w.deadline, func(ctx context.Context, e domain.Engine) (domain.RankedResult, error) {
		return e.Search(ctx, query, topK)
	})
}

// SearchBatch applies the same policy with the deadline scaled by batch size.
func (w *Wrapper) SearchBatch(ctx context.Context, queries []string, topK int) ([]domain.RankedResult, error) {
	deadline := w.deadline * time.Duration(max(len(queries), 1))

	start := time.Now()
	results, err := runWithDeadline(ctx, deadline, w.primary, func(ctx context.Context, e domain.Engine) ([]domain.RankedResult, error) {
		return e.SearchBatch(ctx, queries, topK)
	})
	if err == nil {
		tagAll(results, &domain.EngineOutcome{Engine: primaryName, Duration: time.Since(start)})
		return results, nil
	}

	reason, recoverable := w.noteFailure(err)
	if !recoverable {
		return nil, err
	}

	results, ferr := w.secondary.SearchBatch(ctx, queries, topK)
	if ferr != nil {
		return nil, fmt.Errorf("fallback engine: %w", ferr)
	}
	tagAll(results, &domain.EngineOutcome{
		Engine:         secondaryName,
		FallbackUsed:   true,
		FallbackReason: reason,
		Duration:       time.Since(start),
	})
	return results, nil
}

func (w *Wrapper) run(
	ctx context.Context, deadline time.Duration,
	call func(context.Context, domain.Engine) (domain.RankedResult, error),
) (domain.RankedResult, error) {
	start := time.Now()

	res, err := runWithDeadline(ctx, deadline, w.primary, call)
	if err == nil {
		res.Outcome = &domain.EngineOutcome{Engine: primaryName, Duration: time.Since(start)}
		return res, nil
	}

	reason, recoverable := w.noteFailure(err)
	if !recoverable {
		return domain.RankedResult{}, err
	}

	res, ferr := call(ctx, w.secondary)
	if ferr != nil {
		return domain.RankedResult{}, fmt.Errorf("fallback engine: %w", ferr)
	}
	res.Outcome = &domain.EngineOutcome{
		Engine:         secondaryName,
		FallbackUsed:   true,
		FallbackReason: reason,
		Duration:       time.Since(start),
	}
	return res, nil
}

// noteFailure classifies a primary failure, updates counters, and reports
// whether fallback should run.
func (w *Wrapper) noteFailure(err error) (reason string, recoverable bool) {
	if errors.Is(err, domain.ErrEngineTimeout) {
		w.timeoutCount.Add(1)
		reason = reasonTimeout
	} else {
		w.errorCount.Add(1)
		reason = reasonError
	}

	if !w.fallback {
		return reason, false
	}

	w.fallbackCount.Add(1)
	metrics.FallbacksTotal.WithLabelValues(reason).Inc()
	w.logger.Warn("primary engine failed, falling back",
		zap.String("reason", reason),
		zap.Error(err),
	)
	return reason, true
}

// runWithDeadline executes the call with a deadline context. The engine
// result travels over a channel so a deadline expiry returns immediately;
// cancellation reaches the abandoned call through its context.
func runWithDeadline[T any](
	ctx context.Context, deadline time.Duration, e domain.Engine,
	call func(context.Context, domain.Engine) (T, error),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		val, err := call(ctx, e)
		done <- outcome{val: val, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			out.err = fmt.Errorf("%w: %v", domain.ErrEngineTimeout, out.err)
		}
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", domain.ErrEngineTimeout, deadline)
		}
		return zero, ctx.Err()
	}
}

func tagAll(results []domain.RankedResult, outcome *domain.EngineOutcome) {
	for i := range results {
		o := *outcome
		results[i].Outcome = &o
	}
}

// Counters returns the running fallback, timeout, and error counts.
func (w *Wrapper) Counters() (fallbacks, timeouts, errs int64) {
	return w.fallbackCount.Load(), w.timeoutCount.Load(), w.errorCount.Load()
}

// ResetCounters zeroes the counters. Intended for test isolation.
func (w *Wrapper) ResetCounters() {
	w.fallbackCount.Store(0)
	w.timeoutCount.Store(0)
	w.errorCount.Store(0)
}
