package rank

import (
	"math"
	"testing"

	"github.com/polimaq/rankcore/internal/domain"
)

func TestCombine_Reproducible(t *testing.T) {
	b := domain.ScoreBreakdown{Lexical: 0.8, Semantic: 0.6, Reranker: 0.4, Domain: 0.9}

	got := combine(b)
	want := 0.25*0.8 + 0.40*0.6 + 0.20*0.4 + 0.15*0.9
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("combine = %v, want %v", got, want)
	}
}

func TestCombine_MissingSignalContributesZero(t *testing.T) {
	full := combine(domain.ScoreBreakdown{Lexical: 1, Semantic: 1, Reranker: 1, Domain: 1})
	noSemantic := combine(domain.ScoreBreakdown{Lexical: 1, Reranker: 1, Domain: 1})

	if math.Abs(full-1.0) > 1e-9 {
		t.Errorf("full signals should combine to 1.0, got %v", full)
	}
	if math.Abs(noSemantic-(1.0-0.40)) > 1e-9 {
		t.Errorf("missing semantic term should drop exactly its weight, got %v", noSemantic)
	}
}

func TestCombine_NegativeComponentsAllowed(t *testing.T) {
	got := combine(domain.ScoreBreakdown{Lexical: -0.2, Semantic: -0.5, Reranker: -0.1, Domain: 0.5})
	want := 0.25*-0.2 + 0.40*-0.5 + 0.20*-0.1 + 0.15*0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("combine = %v, want %v", got, want)
	}
}
