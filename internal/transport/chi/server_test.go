package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/polimaq/rankcore/internal/domain"
)

type stubEngine struct {
	result domain.RankedResult
	err    error
	ready  bool
}

func (e *stubEngine) IsReady() bool { return e.ready }

func (e *stubEngine) Search(_ context.Context, query string, _ int) (domain.RankedResult, error) {
	if e.err != nil {
		return domain.RankedResult{}, e.err
	}
	return e.result, nil
}

func (e *stubEngine) SearchBatch(_ context.Context, queries []string, topK int) ([]domain.RankedResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]domain.RankedResult, len(queries))
	for i := range out {
		out[i] = e.result
	}
	return out, nil
}

func newTestServer(engine domain.Engine) http.Handler {
	r := chirouter.NewRouter()
	NewServer(engine, 10, 100, zap.NewNop()).Register(r)
	return r
}

func rankedResult() domain.RankedResult {
	return domain.RankedResult{
		Items: []domain.ResultItem{
			{
				EquipmentID: "eq-1",
				RankScore:   0.82,
				Confidence:  1.0,
				Category:    domain.CategoryCore,
				Breakdown:   domain.ScoreBreakdown{Lexical: 0.7, Combined: 0.82},
			},
		},
		Total: 1,
		Outcome: &domain.EngineOutcome{
			Engine:   "primary",
			Duration: 12 * time.Millisecond,
		},
	}
}

func TestSearch_OK(t *testing.T) {
	handler := newTestServer(&stubEngine{result: rankedResult(), ready: true})

	req := httptest.NewRequest("POST", "/api/v1/search",
		strings.NewReader(`{"query": "enceradeira 350mm", "top_k": 5}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Items[0].EquipmentID != "eq-1" || resp.Items[0].Category != "core" {
		t.Errorf("unexpected item: %+v", resp.Items[0])
	}
	if resp.Outcome == nil || resp.Outcome.Engine != "primary" {
		t.Errorf("unexpected outcome: %+v", resp.Outcome)
	}
}

func TestSearch_BadBody(t *testing.T) {
	handler := newTestServer(&stubEngine{ready: true})

	req := httptest.NewRequest("POST", "/api/v1/search", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_TopKOutOfRange(t *testing.T) {
	handler := newTestServer(&stubEngine{ready: true})

	req := httptest.NewRequest("POST", "/api/v1/search",
		strings.NewReader(`{"query": "aspirador", "top_k": 1000}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{domain.ErrEngineNotReady, http.StatusServiceUnavailable, codeNotReady},
		{domain.ErrEngineTimeout, http.StatusGatewayTimeout, codeEngineTimeout},
		{domain.ErrProvider, http.StatusBadGateway, codeProviderError},
		{fmt.Errorf("wrapped: %w", domain.ErrProvider), http.StatusBadGateway, codeProviderError},
		{fmt.Errorf("something else"), http.StatusInternalServerError, codeInternalError},
	}

	for _, tc := range tests {
		handler := newTestServer(&stubEngine{err: tc.err, ready: true})

		req := httptest.NewRequest("POST", "/api/v1/search",
			strings.NewReader(`{"query": "aspirador"}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != tc.want {
			t.Errorf("%v: got %d, want %d", tc.err, rr.Code, tc.want)
		}

		var errResp errorResponse
		if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if errResp.Code != tc.code {
			t.Errorf("%v: got code %s, want %s", tc.err, errResp.Code, tc.code)
		}
	}
}

func TestSearchBatch_OK(t *testing.T) {
	handler := newTestServer(&stubEngine{result: rankedResult(), ready: true})

	req := httptest.NewRequest("POST", "/api/v1/search/batch",
		strings.NewReader(`{"queries": ["enceradeira", "aspirador"]}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body)
	}

	var resp batchSearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestSearchBatch_Empty(t *testing.T) {
	handler := newTestServer(&stubEngine{ready: true})

	req := httptest.NewRequest("POST", "/api/v1/search/batch",
		strings.NewReader(`{"queries": []}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearchBatch_TooLarge(t *testing.T) {
	handler := newTestServer(&stubEngine{ready: true})

	queries := make([]string, maxBatchSize+1)
	for i := range queries {
		queries[i] = "q"
	}
	body, _ := json.Marshal(batchSearchRequest{Queries: queries})

	req := httptest.NewRequest("POST", "/api/v1/search/batch", strings.NewReader(string(body)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHealthCheck(t *testing.T) {
	ready := newTestServer(&stubEngine{ready: true})
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	ready.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("ready engine: got %d, want %d", rr.Code, http.StatusOK)
	}

	notReady := newTestServer(&stubEngine{ready: false})
	rr = httptest.NewRecorder()
	notReady.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unready engine: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
