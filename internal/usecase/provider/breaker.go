package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

// BreakerSettings configure the provider circuit breakers.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

func newBreaker(s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// BreakerEmbedder short-circuits a flapping embedding provider so searches
// fall back to the zero semantic term immediately instead of waiting out
// timeouts.
type BreakerEmbedder struct {
	inner domain.EmbeddingProvider
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps an embedding provider with a circuit breaker.
func NewBreakerEmbedder(inner domain.EmbeddingProvider, s BreakerSettings, logger *zap.Logger) *BreakerEmbedder {
	return &BreakerEmbedder{inner: inner, cb: newBreaker(s, logger)}
}

// EmbedQuery runs the call through the breaker.
func (b *BreakerEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	return out.([]float32), nil
}

// EmbedDocuments runs the call through the breaker.
func (b *BreakerEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.EmbedDocuments(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	return out.([][]float32), nil
}

// Dimension delegates to the inner provider.
func (b *BreakerEmbedder) Dimension() int { return b.inner.Dimension() }

// BreakerReranker wraps a cross-encoder provider with a circuit breaker.
type BreakerReranker struct {
	inner domain.CrossEncoderProvider
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerReranker wraps a cross-encoder provider with a circuit breaker.
func NewBreakerReranker(inner domain.CrossEncoderProvider, s BreakerSettings, logger *zap.Logger) *BreakerReranker {
	return &BreakerReranker{inner: inner, cb: newBreaker(s, logger)}
}

// Score runs the call through the breaker.
func (b *BreakerReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Score(ctx, query, documents)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	return out.([]float64), nil
}
