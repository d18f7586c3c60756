// Package rankcore provides an embedded relevance-ranking engine for
// professional cleaning-equipment catalogs. The same pipeline that backs
// the HTTP service (lexical n-gram retrieval, optional semantic and
// cross-encoder signals, domain compatibility, fused ranking) is exposed
// here as an in-process library.
package rankcore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/classify"
	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/index"
	"github.com/polimaq/rankcore/internal/queryplan"
	"github.com/polimaq/rankcore/internal/usecase/rank"
)

// Document is one catalog listing to index.
type Document struct {
	ID          string
	EquipmentID string
	GroupID     string
	Text        string
	Category    string // optional: "core", "support" or "peripheral"
}

// Breakdown carries the component scores behind a ranked hit.
type Breakdown struct {
	Lexical  float64
	Semantic float64
	Reranker float64
	Domain   float64
	Combined float64
}

// Result is one ranked, deduplicated catalog hit.
type Result struct {
	EquipmentID string
	RankScore   float64
	Confidence  float64
	Category    string
	Breakdown   Breakdown
}

// SearchResult is the response of a ranking call.
type SearchResult struct {
	Items        []Result
	GuardApplied bool
}

// EmbeddingProvider supplies dense vectors for the semantic signal.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// CrossEncoderProvider scores query/document pairs for the reranker signal.
type CrossEncoderProvider interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Client is the rankcore SDK entry point.
type Client struct {
	engine *rank.Service
}

// New builds a ranking engine over the given documents. Without providers
// (see WithProviders) the engine ranks on the lexical and domain signals
// alone, which needs no network at all.
func New(docs []Document, opts ...Option) (*Client, error) {
	cfg := &clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(cfg)
	}

	domDocs := make([]domain.Document, len(docs))
	for i, d := range docs {
		domDocs[i] = domain.Document{
			ID:          d.ID,
			EquipmentID: d.EquipmentID,
			GroupID:     d.GroupID,
			Text:        d.Text,
			Category:    d.Category,
		}
	}

	idx, err := index.Build(domDocs)
	if err != nil {
		return nil, fmt.Errorf("rankcore: build index: %w", err)
	}

	// Pass nil interface (not typed nil pointer!) when a provider is absent.
	var embedder domain.EmbeddingProvider
	if cfg.embedder != nil {
		embedder = cfg.embedder
	}
	var reranker domain.CrossEncoderProvider
	if cfg.reranker != nil {
		reranker = cfg.reranker
	}

	engine, err := rank.New(idx, queryplan.New(), classify.New(), embedder, reranker, cfg.opts, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("rankcore: create engine: %w", err)
	}

	return &Client{engine: engine}, nil
}

// Search ranks the corpus against a free-text query.
func (c *Client) Search(ctx context.Context, query string, topK int) (SearchResult, error) {
	res, err := c.engine.Search(ctx, query, topK)
	if err != nil {
		return SearchResult{}, err
	}
	return toSearchResult(res), nil
}

// SearchBatch ranks multiple queries concurrently.
func (c *Client) SearchBatch(ctx context.Context, queries []string, topK int) ([]SearchResult, error) {
	results, err := c.engine.SearchBatch(ctx, queries, topK)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = toSearchResult(r)
	}
	return out, nil
}

// Close releases the engine's worker pool.
func (c *Client) Close() {
	c.engine.Close()
}

func toSearchResult(r domain.RankedResult) SearchResult {
	items := make([]Result, len(r.Items))
	for i, it := range r.Items {
		items[i] = Result{
			EquipmentID: it.EquipmentID,
			RankScore:   it.RankScore,
			Confidence:  it.Confidence,
			Category:    string(it.Category),
			Breakdown: Breakdown{
				Lexical:  it.Breakdown.Lexical,
				Semantic: it.Breakdown.Semantic,
				Reranker: it.Breakdown.Reranker,
				Domain:   it.Breakdown.Domain,
				Combined: it.Breakdown.Combined,
			},
		}
	}
	return SearchResult{Items: items, GuardApplied: r.GuardApplied}
}
