package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

func newTestReranker(baseURL string) *Reranker {
	return NewReranker(&RerankerConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-reranker",
		Logger:  zap.NewNop(),
	})
}

func TestRerankerScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "enceradeira" || len(req.Documents) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 1, "relevance_score": 0.9},
				{"index": 0, "relevance_score": 0.2},
			},
		})
	}))
	defer server.Close()

	scores, err := newTestReranker(server.URL).Score(context.Background(), "enceradeira", []string{"doc a", "doc b"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0] != 0.2 || scores[1] != 0.9 {
		t.Errorf("scores not mapped by index: %v", scores)
	}
}

func TestRerankerScore_Empty(t *testing.T) {
	scores, err := newTestReranker("http://unused").Score(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores != nil {
		t.Errorf("expected nil scores for empty input, got %v", scores)
	}
}

func TestRerankerScore_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestReranker(server.URL).Score(context.Background(), "q", []string{"doc"})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestRerankerScore_IndexOutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 5, "relevance_score": 0.9},
			},
		})
	}))
	defer server.Close()

	if _, err := newTestReranker(server.URL).Score(context.Background(), "q", []string{"doc"}); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
