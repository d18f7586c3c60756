package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

type failingEmbedder struct {
	err   error
	calls int
}

func (f *failingEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1}, nil
}

func (f *failingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return make([][]float32, len(texts)), nil
}

func (f *failingEmbedder) Dimension() int { return 1 }

func breakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "test",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
	}
}

func TestBreakerEmbedder_PassThrough(t *testing.T) {
	inner := &failingEmbedder{}
	b := NewBreakerEmbedder(inner, breakerSettings(), zap.NewNop())

	vec, err := b.EmbedQuery(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 1 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestBreakerEmbedder_WrapsProviderError(t *testing.T) {
	inner := &failingEmbedder{err: errors.New("api down")}
	b := NewBreakerEmbedder(inner, breakerSettings(), zap.NewNop())

	_, err := b.EmbedQuery(context.Background(), "text")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestBreakerEmbedder_OpensAfterFailures(t *testing.T) {
	inner := &failingEmbedder{err: errors.New("api down")}
	b := NewBreakerEmbedder(inner, breakerSettings(), zap.NewNop())

	// Trip the breaker, then verify later calls stop reaching the provider.
	for i := 0; i < 5; i++ {
		_, _ = b.EmbedQuery(context.Background(), "text")
	}
	tripped := inner.calls

	for i := 0; i < 5; i++ {
		_, err := b.EmbedQuery(context.Background(), "text")
		if err == nil {
			t.Fatal("expected error from open breaker")
		}
	}
	if inner.calls != tripped {
		t.Errorf("open breaker still reached provider: %d -> %d calls", tripped, inner.calls)
	}
}
