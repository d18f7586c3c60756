package domain

import "context"

// Engine is the ranking contract shared by the core engine and its
// decorators (resilience wrapper, shadow comparator).
type Engine interface {
	IsReady() bool
	Search(ctx context.Context, query string, topK int) (RankedResult, error)
	SearchBatch(ctx context.Context, queries []string, topK int) ([]RankedResult, error)
}
