package rank

import "github.com/polimaq/rankcore/internal/domain"

// Fusion weights. Fixed constants summing to 1.0, never renormalized. When
// a provider signal is unavailable its term contributes 0, so a degraded
// request is visible in the score instead of hidden by weight shuffling.
const (
	weightLexical  = 0.25
	weightSemantic = 0.40
	weightReranker = 0.20
	weightDomain   = 0.15
)

// combine fuses the four component scores. Lexical, semantic, and reranker
// are unbounded, so the result is not guaranteed in [0,1]; only relative
// ordering matters.
func combine(b domain.ScoreBreakdown) float64 {
	return weightLexical*b.Lexical +
		weightSemantic*b.Semantic +
		weightReranker*b.Reranker +
		weightDomain*b.Domain
}
