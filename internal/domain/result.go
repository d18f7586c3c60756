package domain

import "time"

// ScoreBreakdown carries every component score plus the fused value.
// Domain is guaranteed in [0,1]; the other components are not bounded
// below zero (cosine similarity and learned scores may be negative).
type ScoreBreakdown struct {
	Lexical  float64
	Semantic float64
	Reranker float64
	Domain   float64
	Combined float64
}

// ResultItem is one ranked, deduplicated catalog hit.
type ResultItem struct {
	EquipmentID string
	RankScore   float64
	Confidence  float64
	Breakdown   ScoreBreakdown
	Category    Category
}

// EngineOutcome is the audit trail attached by the resilience wrapper.
// It never influences ranking.
type EngineOutcome struct {
	Engine         string
	FallbackUsed   bool
	FallbackReason string // "timeout" or "error" when FallbackUsed
	Duration       time.Duration
}

// RankedResult is the complete response of a ranking engine.
type RankedResult struct {
	Items        []ResultItem
	Total        int
	GuardApplied bool
	Outcome      *EngineOutcome
}
