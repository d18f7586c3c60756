package domain

import "context"

// EmbeddingProvider vectorizes texts. Implementations are externally owned
// (remote API, local model, deterministic stub) and swappable.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// CrossEncoderProvider scores (query, document) pairs jointly. Returns one
// relevance score per document, in input order.
type CrossEncoderProvider interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}
