// Package shadow runs a candidate engine next to the serving engine on a
// sample of traffic and reports similarity metrics. The caller always
// receives the primary's result; comparison is observability only.
package shadow

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/metrics"
)

// ScoreDelta is one of the largest per-item score differences between the
// two engines.
type ScoreDelta struct {
	EquipmentID string
	Primary     float64
	Secondary   float64
	Delta       float64
}

// ComparisonMetrics summarizes how two result sets diverge. Ephemeral:
// produced per comparison and handed to the sink, never persisted here.
type ComparisonMetrics struct {
	ComparisonID     string
	Query            string
	JaccardSim       float64
	RankDifference   float64 // mean |rank_primary - rank_secondary| over the intersection
	ScoreMAE         float64 // mean |score_primary - score_secondary| over the intersection
	PrimaryOnlyIDs   []string
	SecondaryOnlyIDs []string
	TopDeltas        []ScoreDelta
}

// Sink receives comparison metrics. The default sink logs them.
type Sink interface {
	Report(ComparisonMetrics)
}

// Comparator decorates the serving engine with sampled shadow comparison
// against a candidate engine.
type Comparator struct {
	primary   domain.Engine
	candidate domain.Engine
	rate      float64
	topDeltas int
	sink      Sink
	logger    *zap.Logger

	// rng guarded by mu; math/rand global state is avoided so sampling is
	// seedable in tests.
	mu  sync.Mutex
	rng *rand.Rand
}

var _ domain.Engine = (*Comparator)(nil)

// New creates a shadow comparator sampling the given fraction of Search
// traffic. A nil sink falls back to logging.
func New(primary, candidate domain.Engine, rate float64, topDeltas int, sink Sink, logger *zap.Logger, seed int64) *Comparator {
	if sink == nil {
		sink = &logSink{logger: logger}
	}
	if topDeltas <= 0 {
		topDeltas = 5
	}
	return &Comparator{
		primary:   primary,
		candidate: candidate,
		rate:      rate,
		topDeltas: topDeltas,
		sink:      sink,
		logger:    logger,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// IsReady reports the serving engine's readiness.
func (c *Comparator) IsReady() bool { return c.primary.IsReady() }

// Search serves from the primary. On sampled requests both engines run
// concurrently and the comparison goes to the sink; a candidate failure is
// logged and swallowed.
func (c *Comparator) Search(ctx context.Context, query string, topK int) (domain.RankedResult, error) {
	if !c.sampled() {
		return c.primary.Search(ctx, query, topK)
	}

	var (
		wg           sync.WaitGroup
		pRes, sRes   domain.RankedResult
		pErr, sErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		pRes, pErr = c.primary.Search(ctx, query, topK)
	}()
	go func() {
		defer wg.Done()
		sRes, sErr = c.candidate.Search(ctx, query, topK)
	}()
	wg.Wait()

	if pErr != nil {
		// Primary failure is the caller's problem; nothing to compare.
		return domain.RankedResult{}, pErr
	}
	if sErr != nil {
		metrics.ShadowComparisonsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("shadow candidate failed", zap.String("query", query), zap.Error(sErr))
		return pRes, nil
	}

	m := Compare(pRes, sRes, c.topDeltas)
	m.Query = query
	c.sink.Report(m)
	metrics.ShadowComparisonsTotal.WithLabelValues("ok").Inc()

	return pRes, nil
}

// SearchBatch is never shadowed; batch traffic goes straight to the primary.
func (c *Comparator) SearchBatch(ctx context.Context, queries []string, topK int) ([]domain.RankedResult, error) {
	return c.primary.SearchBatch(ctx, queries, topK)
}

func (c *Comparator) sampled() bool {
	if c.rate <= 0 {
		return false
	}
	if c.rate >= 1 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() < c.rate
}

// Compare computes similarity metrics between two ranked results.
func Compare(primary, secondary domain.RankedResult, topDeltas int) ComparisonMetrics {
	m := ComparisonMetrics{ComparisonID: uuid.NewString()}

	pRank := make(map[string]int, len(primary.Items))
	pScore := make(map[string]float64, len(primary.Items))
	for i, it := range primary.Items {
		pRank[it.EquipmentID] = i
		pScore[it.EquipmentID] = it.RankScore
	}
	sRank := make(map[string]int, len(secondary.Items))
	sScore := make(map[string]float64, len(secondary.Items))
	for i, it := range secondary.Items {
		sRank[it.EquipmentID] = i
		sScore[it.EquipmentID] = it.RankScore
	}

	var interSize int
	var rankDiffSum, scoreDiffSum float64
	var deltas []ScoreDelta
	for id, pr := range pRank {
		sr, ok := sRank[id]
		if !ok {
			m.PrimaryOnlyIDs = append(m.PrimaryOnlyIDs, id)
			continue
		}
		interSize++
		rankDiffSum += math.Abs(float64(pr - sr))
		d := math.Abs(pScore[id] - sScore[id])
		scoreDiffSum += d
		deltas = append(deltas, ScoreDelta{
			EquipmentID: id,
			Primary:     pScore[id],
			Secondary:   sScore[id],
			Delta:       d,
		})
	}
	for id := range sRank {
		if _, ok := pRank[id]; !ok {
			m.SecondaryOnlyIDs = append(m.SecondaryOnlyIDs, id)
		}
	}

	union := len(pRank) + len(sRank) - interSize
	if union == 0 {
		// Two empty results are identical.
		m.JaccardSim = 1.0
	} else {
		m.JaccardSim = float64(interSize) / float64(union)
	}
	if interSize > 0 {
		m.RankDifference = rankDiffSum / float64(interSize)
		m.ScoreMAE = scoreDiffSum / float64(interSize)
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Delta > deltas[j].Delta })
	if len(deltas) > topDeltas {
		deltas = deltas[:topDeltas]
	}
	m.TopDeltas = deltas

	sort.Strings(m.PrimaryOnlyIDs)
	sort.Strings(m.SecondaryOnlyIDs)
	return m
}

// logSink logs each comparison at info level.
type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Report(m ComparisonMetrics) {
	s.logger.Info("shadow comparison",
		zap.String("comparison_id", m.ComparisonID),
		zap.String("query", m.Query),
		zap.Float64("jaccard", m.JaccardSim),
		zap.Float64("rank_difference", m.RankDifference),
		zap.Float64("score_mae", m.ScoreMAE),
		zap.Int("primary_only", len(m.PrimaryOnlyIDs)),
		zap.Int("secondary_only", len(m.SecondaryOnlyIDs)),
	)
}
