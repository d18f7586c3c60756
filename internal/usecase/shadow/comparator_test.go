package shadow

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

type stubEngine struct {
	result domain.RankedResult
	err    error
	calls  int
}

func (s *stubEngine) IsReady() bool { return true }

func (s *stubEngine) Search(_ context.Context, _ string, _ int) (domain.RankedResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubEngine) SearchBatch(_ context.Context, queries []string, _ int) ([]domain.RankedResult, error) {
	out := make([]domain.RankedResult, len(queries))
	for i := range out {
		out[i] = s.result
	}
	return out, s.err
}

type captureSink struct {
	reports []ComparisonMetrics
}

func (c *captureSink) Report(m ComparisonMetrics) { c.reports = append(c.reports, m) }

func ranked(ids ...string) domain.RankedResult {
	items := make([]domain.ResultItem, len(ids))
	for i, id := range ids {
		items[i] = domain.ResultItem{EquipmentID: id, RankScore: 1.0 - float64(i)*0.1}
	}
	return domain.RankedResult{Items: items, Total: len(items)}
}

func TestCompare_Identity(t *testing.T) {
	res := ranked("A", "B", "C")

	m := Compare(res, res, 5)
	if m.JaccardSim != 1.0 {
		t.Errorf("jaccard = %v, want 1.0", m.JaccardSim)
	}
	if m.RankDifference != 0 {
		t.Errorf("rank difference = %v, want 0", m.RankDifference)
	}
	if m.ScoreMAE != 0 {
		t.Errorf("score MAE = %v, want 0", m.ScoreMAE)
	}
	if len(m.PrimaryOnlyIDs) != 0 || len(m.SecondaryOnlyIDs) != 0 {
		t.Errorf("expected empty symmetric difference, got %v / %v", m.PrimaryOnlyIDs, m.SecondaryOnlyIDs)
	}
	if m.ComparisonID == "" {
		t.Error("expected a comparison id")
	}
}

func TestCompare_Disjoint(t *testing.T) {
	m := Compare(ranked("A", "B"), ranked("C", "D"), 5)

	if m.JaccardSim != 0 {
		t.Errorf("jaccard = %v, want 0", m.JaccardSim)
	}
	if len(m.PrimaryOnlyIDs) != 2 || len(m.SecondaryOnlyIDs) != 2 {
		t.Errorf("unexpected symmetric difference: %v / %v", m.PrimaryOnlyIDs, m.SecondaryOnlyIDs)
	}
}

func TestCompare_PartialOverlap(t *testing.T) {
	primary := ranked("A", "B", "C")   // scores 1.0, 0.9, 0.8
	secondary := ranked("B", "A", "D") // scores 1.0, 0.9, 0.8

	m := Compare(primary, secondary, 5)

	// Intersection {A, B}, union {A, B, C, D}.
	if math.Abs(m.JaccardSim-0.5) > 1e-9 {
		t.Errorf("jaccard = %v, want 0.5", m.JaccardSim)
	}
	// A: rank 0 vs 1, B: rank 1 vs 0 -> mean 1.
	if math.Abs(m.RankDifference-1.0) > 1e-9 {
		t.Errorf("rank difference = %v, want 1.0", m.RankDifference)
	}
	// A: |1.0-0.9|, B: |0.9-1.0| -> mean 0.1.
	if math.Abs(m.ScoreMAE-0.1) > 1e-9 {
		t.Errorf("score MAE = %v, want 0.1", m.ScoreMAE)
	}
	if len(m.PrimaryOnlyIDs) != 1 || m.PrimaryOnlyIDs[0] != "C" {
		t.Errorf("primary-only = %v, want [C]", m.PrimaryOnlyIDs)
	}
	if len(m.SecondaryOnlyIDs) != 1 || m.SecondaryOnlyIDs[0] != "D" {
		t.Errorf("secondary-only = %v, want [D]", m.SecondaryOnlyIDs)
	}
}

func TestCompare_TopDeltasLimited(t *testing.T) {
	m := Compare(ranked("A", "B", "C", "D"), ranked("D", "C", "B", "A"), 2)

	if len(m.TopDeltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(m.TopDeltas))
	}
	if m.TopDeltas[0].Delta < m.TopDeltas[1].Delta {
		t.Error("deltas not sorted descending")
	}
}

func TestSearch_AlwaysReturnsPrimary(t *testing.T) {
	primary := &stubEngine{result: ranked("P1", "P2")}
	candidate := &stubEngine{result: ranked("S1")}
	sink := &captureSink{}
	// rate 1.0: every request is sampled.
	c := New(primary, candidate, 1.0, 5, sink, zap.NewNop(), 1)

	res, err := c.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Items[0].EquipmentID != "P1" {
		t.Errorf("caller must receive primary result, got %s", res.Items[0].EquipmentID)
	}
	if candidate.calls != 1 {
		t.Errorf("candidate calls = %d, want 1", candidate.calls)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("expected 1 comparison report, got %d", len(sink.reports))
	}
	if sink.reports[0].Query != "q" {
		t.Errorf("report query = %q", sink.reports[0].Query)
	}
}

func TestSearch_CandidateFailureSwallowed(t *testing.T) {
	primary := &stubEngine{result: ranked("P1")}
	candidate := &stubEngine{err: errors.New("candidate down")}
	sink := &captureSink{}
	c := New(primary, candidate, 1.0, 5, sink, zap.NewNop(), 1)

	res, err := c.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("candidate failure must not propagate, got %v", err)
	}
	if res.Items[0].EquipmentID != "P1" {
		t.Errorf("expected primary result, got %+v", res.Items)
	}
	if len(sink.reports) != 0 {
		t.Error("no comparison should be reported on candidate failure")
	}
}

func TestSearch_ZeroRateNeverSamples(t *testing.T) {
	primary := &stubEngine{result: ranked("P1")}
	candidate := &stubEngine{result: ranked("S1")}
	c := New(primary, candidate, 0, 5, &captureSink{}, zap.NewNop(), 1)

	for i := 0; i < 20; i++ {
		if _, err := c.Search(context.Background(), "q", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if candidate.calls != 0 {
		t.Errorf("candidate ran %d times at rate 0", candidate.calls)
	}
}

func TestSearch_SamplingRoughlyHonorsRate(t *testing.T) {
	primary := &stubEngine{result: ranked("P1")}
	candidate := &stubEngine{result: ranked("P1")}
	c := New(primary, candidate, 0.5, 5, &captureSink{}, zap.NewNop(), 42)

	const n = 400
	for i := 0; i < n; i++ {
		if _, err := c.Search(context.Background(), "q", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if candidate.calls < n/4 || candidate.calls > 3*n/4 {
		t.Errorf("candidate sampled %d of %d at rate 0.5", candidate.calls, n)
	}
}
