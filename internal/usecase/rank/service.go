// Package rank implements the canonical ranking pipeline: lexical retrieval
// per query-plan variant, provider fan-out, domain compatibility, weighted
// fusion, and post-processing.
package rank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/classify"
	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/metrics"
)

// Options configure the engine.
type Options struct {
	// Name labels this engine instance in logs and metrics.
	Name string
	// Candidates is how many lexical hits are fed to the providers.
	Candidates int
	// ProviderTimeout bounds each provider call.
	ProviderTimeout time.Duration
	// Strict makes a provider failure fail the whole search instead of
	// degrading that signal to zero.
	Strict bool

	Confidence  ConfidenceMethod
	Temperature float64
	IntentGuard bool

	// BatchWorkers bounds SearchBatch concurrency.
	BatchWorkers int
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = "primary"
	}
	if o.Candidates <= 0 {
		o.Candidates = 50
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 2 * time.Second
	}
	if o.Confidence == "" {
		o.Confidence = ConfidenceMinMax
	}
	if o.BatchWorkers <= 0 {
		o.BatchWorkers = 4
	}
}

// Service is the core ranking engine. Providers may be nil: a nil provider
// contributes a zero term, which makes the lexical-only fallback engine just
// a Service without providers.
type Service struct {
	retriever  Retriever
	planner    Planner
	classifier Classifier
	embedder   domain.EmbeddingProvider
	reranker   domain.CrossEncoderProvider
	post       *PostProcessor
	opts       Options
	docClass   map[string]domain.Classification
	pool       *ants.Pool
	logger     *zap.Logger
}

var _ domain.Engine = (*Service)(nil)

// New creates a ranking engine. Document classifications are computed once
// here and never mutated; a corpus change requires a new Service over a new
// index.
func New(
	retriever Retriever, planner Planner, classifier Classifier,
	embedder domain.EmbeddingProvider, reranker domain.CrossEncoderProvider,
	opts Options, logger *zap.Logger,
) (*Service, error) {
	opts.applyDefaults()

	pool, err := ants.NewPool(opts.BatchWorkers)
	if err != nil {
		return nil, fmt.Errorf("create batch pool: %w", err)
	}

	docs := retriever.Documents()
	docClass := make(map[string]domain.Classification, len(docs))
	for _, d := range docs {
		docClass[d.ID] = classifyDocument(classifier, d)
	}

	return &Service{
		retriever:  retriever,
		planner:    planner,
		classifier: classifier,
		embedder:   embedder,
		reranker:   reranker,
		post:       NewPostProcessor(opts.Confidence, opts.Temperature, opts.IntentGuard),
		opts:       opts,
		docClass:   docClass,
		pool:       pool,
		logger:     logger.Named(opts.Name),
	}, nil
}

// classifyDocument honors an explicit loader label when it names a valid
// category, otherwise classifies the listing text.
func classifyDocument(c Classifier, d domain.Document) domain.Classification {
	switch domain.Category(d.Category) {
	case domain.CategoryCore:
		return domain.Classification{Category: domain.CategoryCore, Confidence: 0.95}
	case domain.CategorySupport:
		return domain.Classification{Category: domain.CategorySupport, Confidence: 0.90}
	case domain.CategoryPeripheral:
		return domain.Classification{Category: domain.CategoryPeripheral, Confidence: 0.90}
	default:
		return c.Classify(d.Text)
	}
}

// Close releases the batch worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// IsReady reports whether the index behind this engine holds documents.
func (s *Service) IsReady() bool {
	return s.retriever != nil && s.retriever.Len() > 0
}

// Search ranks the catalog for one query. An empty query resolves to an
// empty result, not an error.
func (s *Service) Search(ctx context.Context, query string, topK int) (domain.RankedResult, error) {
	start := time.Now()
	res, err := s.search(ctx, query, topK)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(s.opts.Name, status).Inc()
	metrics.SearchDuration.WithLabelValues(s.opts.Name).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) search(ctx context.Context, query string, topK int) (domain.RankedResult, error) {
	if !s.IsReady() {
		return domain.RankedResult{}, domain.ErrEngineNotReady
	}
	if topK <= 0 {
		return domain.RankedResult{}, nil
	}

	plan := s.planner.Plan(query)
	if plan.Primary == "" {
		return domain.RankedResult{}, nil
	}

	cands := s.retrieve(plan)
	if len(cands) == 0 {
		return domain.RankedResult{}, nil
	}

	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.doc.Text
	}

	semantic, reranker, err := s.providerScores(ctx, plan.Primary, texts)
	if err != nil {
		return domain.RankedResult{}, err
	}

	queryClass := s.classifier.Classify(plan.Primary)

	items := make([]domain.ResultItem, len(cands))
	for i, c := range cands {
		dc := s.docClass[c.doc.ID]
		b := domain.ScoreBreakdown{
			Lexical:  c.lexical,
			Semantic: semantic[i],
			Reranker: reranker[i],
			Domain:   classify.Compatibility(queryClass, dc),
		}
		b.Combined = combine(b)
		items[i] = domain.ResultItem{
			EquipmentID: c.doc.Identity(),
			RankScore:   b.Combined,
			Breakdown:   b,
			Category:    dc.Category,
		}
	}

	processed, guarded := s.post.Process(items, queryClass, topK)
	if guarded {
		metrics.IntentGuardTotal.Inc()
		s.logger.Debug("intent guard reordered top result", zap.String("query", plan.Primary))
	}

	return domain.RankedResult{Items: processed, Total: len(processed), GuardApplied: guarded}, nil
}

// SearchBatch ranks every query, bounded by the worker pool. The first
// failing query fails the batch.
func (s *Service) SearchBatch(ctx context.Context, queries []string, topK int) ([]domain.RankedResult, error) {
	results := make([]domain.RankedResult, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = s.Search(ctx, q, topK)
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("submit batch query: %w", err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

type candidate struct {
	doc     domain.Document
	lexical float64
	pos     int
}

// retrieve runs one lexical query per plan variant and aggregates scores by
// equipment identity via weighted sum, keeping the candidate list ordered by
// aggregated score.
func (s *Service) retrieve(plan domain.QueryPlan) []candidate {
	agg := make(map[string]*candidate)
	order := 0

	for _, v := range plan.All() {
		if v.Weight <= 0 {
			continue
		}
		for _, h := range s.retriever.Search(v.Text, s.opts.Candidates) {
			id := h.Doc.Identity()
			if c, ok := agg[id]; ok {
				c.lexical += v.Weight * h.Score
			} else {
				agg[id] = &candidate{doc: h.Doc, lexical: v.Weight * h.Score, pos: order}
				order++
			}
		}
	}

	cands := make([]candidate, 0, len(agg))
	for _, c := range agg {
		cands = append(cands, *c)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].lexical != cands[j].lexical {
			return cands[i].lexical > cands[j].lexical
		}
		return cands[i].pos < cands[j].pos
	})

	if len(cands) > s.opts.Candidates {
		cands = cands[:s.opts.Candidates]
	}
	return cands
}

// providerScores fetches semantic and reranker scores for the candidate set
// concurrently. A failed or absent provider degrades that signal to zeros
// unless strict mode is on.
func (s *Service) providerScores(ctx context.Context, query string, texts []string) ([]float64, []float64, error) {
	semantic := make([]float64, len(texts))
	reranker := make([]float64, len(texts))

	var wg sync.WaitGroup
	var semErr, rerErr error

	if s.embedder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semErr = s.semanticScores(ctx, query, texts, semantic)
		}()
	}
	if s.reranker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rerErr = s.rerankerScores(ctx, query, texts, reranker)
		}()
	}
	wg.Wait()

	if semErr != nil {
		if s.opts.Strict {
			return nil, nil, fmt.Errorf("semantic scores: %w", semErr)
		}
		s.logger.Warn("semantic signal degraded to zero", zap.Error(semErr))
		clear(semantic)
	}
	if rerErr != nil {
		if s.opts.Strict {
			return nil, nil, fmt.Errorf("reranker scores: %w", rerErr)
		}
		s.logger.Warn("reranker signal degraded to zero", zap.Error(rerErr))
		clear(reranker)
	}

	return semantic, reranker, nil
}

func (s *Service) semanticScores(ctx context.Context, query string, texts []string, out []float64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	dvs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(dvs) != len(texts) {
		return fmt.Errorf("embed documents: got %d vectors for %d texts: %w",
			len(dvs), len(texts), domain.ErrProvider)
	}

	for i, dv := range dvs {
		out[i] = cosine(qv, dv)
	}
	return nil
}

func (s *Service) rerankerScores(ctx context.Context, query string, texts []string, out []float64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	scores, err := s.reranker.Score(ctx, query, texts)
	if err != nil {
		return fmt.Errorf("rerank: %w", err)
	}
	if len(scores) != len(texts) {
		return fmt.Errorf("rerank: got %d scores for %d texts: %w",
			len(scores), len(texts), domain.ErrProvider)
	}
	copy(out, scores)
	return nil
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
