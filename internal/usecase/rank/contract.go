package rank

import (
	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/index"
)

// Retriever is the lexical index contract consumed by the engine.
type Retriever interface {
	Search(query string, topK int) []index.Hit
	Documents() []domain.Document
	Len() int
}

// Planner compiles a free-text query into a weighted variant set.
type Planner interface {
	Plan(query string) domain.QueryPlan
}

// Classifier assigns a domain category to a text.
type Classifier interface {
	Classify(text string) domain.Classification
}
