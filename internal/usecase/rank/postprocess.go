package rank

import (
	"math"
	"sort"

	"github.com/polimaq/rankcore/internal/domain"
)

// ConfidenceMethod selects how per-item confidence is derived from rank scores.
type ConfidenceMethod string

// Confidence methods.
const (
	ConfidenceMinMax  ConfidenceMethod = "minmax"
	ConfidenceSoftmax ConfidenceMethod = "softmax"
)

// PostProcessor deduplicates ranked candidates and assigns rank-monotonic
// confidence values. Stateless; safe for concurrent use.
type PostProcessor struct {
	method      ConfidenceMethod
	temperature float64
	intentGuard bool
}

// NewPostProcessor creates a post-processor. temperature only applies to
// the softmax method; zero falls back to 1.0.
func NewPostProcessor(method ConfidenceMethod, temperature float64, intentGuard bool) *PostProcessor {
	if temperature <= 0 {
		temperature = 1.0
	}
	return &PostProcessor{method: method, temperature: temperature, intentGuard: intentGuard}
}

// Process deduplicates by equipment identity, fixes the final order, applies
// the core-intent guard when configured, and assigns confidence strictly
// after the order is final. It returns the processed items and whether the
// guard fired.
func (p *PostProcessor) Process(items []domain.ResultItem, queryClass domain.Classification, topK int) ([]domain.ResultItem, bool) {
	items = dedupe(items)
	sortByRank(items)

	guarded := false
	if p.intentGuard && p.guardApplies(items, queryClass) {
		applyGuard(items)
		sortByRank(items)
		guarded = true
	}

	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}

	p.assignConfidence(items)
	return items, guarded
}

// dedupe keeps exactly one candidate per equipment identity: the one with
// the greatest sort score. Earlier duplicates keep their position.
func dedupe(items []domain.ResultItem) []domain.ResultItem {
	best := make(map[string]int, len(items))
	out := items[:0]
	for _, it := range items {
		idx, seen := best[it.EquipmentID]
		if !seen {
			best[it.EquipmentID] = len(out)
			out = append(out, it)
			continue
		}
		if sortScore(it) > sortScore(out[idx]) {
			out[idx] = it
		}
	}
	return out
}

// sortScore is the dedup/sort key: rank score, falling back to the fused
// score, falling back to the lexical score for candidates that never went
// through fusion.
func sortScore(it domain.ResultItem) float64 {
	if it.RankScore != 0 {
		return it.RankScore
	}
	if it.Breakdown.Combined != 0 {
		return it.Breakdown.Combined
	}
	return it.Breakdown.Lexical
}

func sortByRank(items []domain.ResultItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return sortScore(items[i]) > sortScore(items[j])
	})
}

// guardApplies reports whether the core-intent guard should fire: the query
// unambiguously asks for core equipment, the top hit is not core, and a
// core hit exists further down.
func (p *PostProcessor) guardApplies(items []domain.ResultItem, queryClass domain.Classification) bool {
	if queryClass.Category != domain.CategoryCore || queryClass.Confidence < 0.9 {
		return false
	}
	if len(items) < 2 || items[0].Category == domain.CategoryCore {
		return false
	}
	for _, it := range items[1:] {
		if it.Category == domain.CategoryCore {
			return true
		}
	}
	return false
}

// applyGuard swaps the rank scores of the top item and the highest-ranked
// core item, so the core hit sorts to the top. This overrides the sort key
// only; component scores are untouched.
func applyGuard(items []domain.ResultItem) {
	for i := 1; i < len(items); i++ {
		if items[i].Category == domain.CategoryCore {
			items[0].RankScore, items[i].RankScore = items[i].RankScore, items[0].RankScore
			return
		}
	}
}

// assignConfidence computes confidence over the already-ordered items.
// Both methods are monotone in the sort score, so confidence never
// increases down the list.
func (p *PostProcessor) assignConfidence(items []domain.ResultItem) {
	if len(items) == 0 {
		return
	}

	switch p.method {
	case ConfidenceSoftmax:
		var sum float64
		exps := make([]float64, len(items))
		for i, it := range items {
			exps[i] = math.Exp(sortScore(it) / p.temperature)
			sum += exps[i]
		}
		for i := range items {
			items[i].Confidence = exps[i] / sum
		}
	default: // minmax
		minScore := sortScore(items[len(items)-1])
		maxScore := sortScore(items[0])
		if maxScore == minScore {
			for i := range items {
				items[i].Confidence = 1.0
			}
			return
		}
		span := maxScore - minScore
		for i := range items {
			items[i].Confidence = (sortScore(items[i]) - minScore) / span
		}
	}
}
