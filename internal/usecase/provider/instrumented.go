// Package provider decorates embedding and cross-encoder providers with
// observability and circuit breaking. Decorators implement the same domain
// interfaces so they stack in any order at the composition root.
package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/metrics"
)

// InstrumentedEmbedder wraps an EmbeddingProvider with metrics and logging.
type InstrumentedEmbedder struct {
	inner  domain.EmbeddingProvider
	name   string
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedding provider.
func NewInstrumentedEmbedder(inner domain.EmbeddingProvider, name string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, name: name, logger: logger}
}

// EmbedQuery delegates and records request metrics.
func (p *InstrumentedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := p.inner.EmbedQuery(ctx, text)
	p.observe("embed_query", start, err)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// EmbedDocuments delegates and records request metrics.
func (p *InstrumentedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := p.inner.EmbedDocuments(ctx, texts)
	p.observe("embed_documents", start, err)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	return vecs, nil
}

// Dimension delegates to the inner provider.
func (p *InstrumentedEmbedder) Dimension() int { return p.inner.Dimension() }

func (p *InstrumentedEmbedder) observe(op string, start time.Time, err error) {
	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		p.logger.Warn("embedding request failed",
			zap.String("provider", p.name),
			zap.String("op", op),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(p.name, status).Inc()
	metrics.ProviderDuration.WithLabelValues(p.name).Observe(duration.Seconds())
}

// InstrumentedReranker wraps a CrossEncoderProvider with metrics and logging.
type InstrumentedReranker struct {
	inner  domain.CrossEncoderProvider
	name   string
	logger *zap.Logger
}

// NewInstrumentedReranker wraps a cross-encoder provider.
func NewInstrumentedReranker(inner domain.CrossEncoderProvider, name string, logger *zap.Logger) *InstrumentedReranker {
	return &InstrumentedReranker{inner: inner, name: name, logger: logger}
}

// Score delegates and records request metrics.
func (p *InstrumentedReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	start := time.Now()
	scores, err := p.inner.Score(ctx, query, documents)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		p.logger.Warn("rerank request failed",
			zap.String("provider", p.name),
			zap.Int("documents", len(documents)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(p.name, status).Inc()
	metrics.ProviderDuration.WithLabelValues(p.name).Observe(duration.Seconds())

	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	return scores, nil
}
