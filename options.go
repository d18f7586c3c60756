package rankcore

import (
	"time"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/usecase/rank"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	embedder EmbeddingProvider
	reranker CrossEncoderProvider
	opts     rank.Options
	logger   *zap.Logger
}

// WithProviders sets the semantic and reranker providers. Either may be
// nil; a missing provider contributes a zero score term.
func WithProviders(embedder EmbeddingProvider, reranker CrossEncoderProvider) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = embedder
		c.reranker = reranker
	})
}

// WithCandidates sets how many lexical hits are fed to the providers.
// Default: 50.
func WithCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.opts.Candidates = n
	})
}

// WithProviderTimeout bounds each provider call. Default: 2s.
func WithProviderTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.opts.ProviderTimeout = d
	})
}

// WithStrictProviders makes a provider failure fail the whole search
// instead of degrading that signal to zero.
func WithStrictProviders() Option {
	return optionFunc(func(c *clientConfig) {
		c.opts.Strict = true
	})
}

// WithIntentGuard enables the core-intent reordering guard.
func WithIntentGuard() Option {
	return optionFunc(func(c *clientConfig) {
		c.opts.IntentGuard = true
	})
}

// WithSoftmaxConfidence switches confidence estimation from min-max
// normalization to a softmax over rank scores.
func WithSoftmaxConfidence(temperature float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.opts.Confidence = rank.ConfidenceSoftmax
		c.opts.Temperature = temperature
	})
}

// WithBatchWorkers bounds SearchBatch concurrency. Default: 4.
func WithBatchWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.opts.BatchWorkers = n
	})
}

// WithLogger enables structured logging for engine operations.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
