package chi

import "github.com/polimaq/rankcore/internal/domain"

// searchRequest is the POST /search body.
type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// batchSearchRequest is the POST /search/batch body.
type batchSearchRequest struct {
	Queries []string `json:"queries"`
	TopK    *int     `json:"top_k,omitempty"`
}

type scoreBreakdown struct {
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
	Reranker float64 `json:"reranker"`
	Domain   float64 `json:"domain"`
	Combined float64 `json:"combined"`
}

type resultItem struct {
	EquipmentID string         `json:"equipment_id"`
	RankScore   float64        `json:"rank_score"`
	Confidence  float64        `json:"confidence"`
	Category    string         `json:"category"`
	Breakdown   scoreBreakdown `json:"breakdown"`
}

type engineOutcome struct {
	Engine         string `json:"engine"`
	FallbackUsed   bool   `json:"fallback_used"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

type searchResponse struct {
	Items        []resultItem   `json:"items"`
	Total        int            `json:"total"`
	GuardApplied bool           `json:"guard_applied"`
	Outcome      *engineOutcome `json:"outcome,omitempty"`
}

type batchSearchResponse struct {
	Results []searchResponse `json:"results"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error response codes.
const (
	codeBadRequest    = "bad_request"
	codeProviderError = "provider_error"
	codeEngineTimeout = "engine_timeout"
	codeNotReady      = "engine_not_ready"
	codeInternalError = "internal_error"
)

func resultToDTO(r domain.RankedResult) searchResponse {
	items := make([]resultItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = resultItem{
			EquipmentID: it.EquipmentID,
			RankScore:   it.RankScore,
			Confidence:  it.Confidence,
			Category:    string(it.Category),
			Breakdown: scoreBreakdown{
				Lexical:  it.Breakdown.Lexical,
				Semantic: it.Breakdown.Semantic,
				Reranker: it.Breakdown.Reranker,
				Domain:   it.Breakdown.Domain,
				Combined: it.Breakdown.Combined,
			},
		}
	}

	resp := searchResponse{
		Items:        items,
		Total:        r.Total,
		GuardApplied: r.GuardApplied,
	}
	if r.Outcome != nil {
		resp.Outcome = &engineOutcome{
			Engine:         r.Outcome.Engine,
			FallbackUsed:   r.Outcome.FallbackUsed,
			FallbackReason: r.Outcome.FallbackReason,
			DurationMs:     r.Outcome.Duration.Milliseconds(),
		}
	}
	return resp
}
