// Package queryplan compiles free-text queries into weighted variant sets:
// the normalized primary plus abbreviation expansions and synonym rewrites.
package queryplan

import (
	"strings"

	"github.com/polimaq/rankcore/internal/domain"
	"github.com/polimaq/rankcore/internal/index"
)

// Rewrite weights. Expansions score slightly below the primary so a listing
// matching the user's literal words still wins ties.
const (
	abbreviationWeight = 0.9
	synonymWeight      = 0.7
)

// abbreviations maps shorthand tokens customers actually type to their full
// catalog form.
var abbreviations = map[string]string{
	"asp":   "aspirador",
	"enc":   "enceradeira",
	"lav":   "lavadora",
	"ap":    "alta pressao",
	"ind":   "industrial",
	"prof":  "profissional",
	"elet":  "eletrico",
	"autom": "automatica",
}

// synonyms maps full tokens to an equivalent catalog term.
var synonyms = map[string]string{
	"polidora":   "enceradeira",
	"vap":        "lavadora de alta pressao",
	"wap":        "lavadora de alta pressao",
	"karcher":    "lavadora de alta pressao",
	"aspiradora": "aspirador",
	"encerador":  "enceradeira",
}

// Planner compiles query plans. Stateless and safe for concurrent use.
type Planner struct{}

// New creates a query planner.
func New() *Planner {
	return &Planner{}
}

// Plan normalizes the query and derives weighted rewrites. The primary
// variant always carries weight 1.0; an empty query yields an empty plan.
func (p *Planner) Plan(query string) domain.QueryPlan {
	primary := index.Normalize(query)
	if primary == "" {
		return domain.QueryPlan{}
	}

	plan := domain.QueryPlan{Primary: primary}
	tokens := strings.Fields(primary)

	if expanded, changed := rewriteTokens(tokens, abbreviations); changed {
		plan.Variants = append(plan.Variants, domain.Variant{
			Text:   expanded,
			Weight: abbreviationWeight,
			Reason: "abbreviation",
		})
	}
	if expanded, changed := rewriteTokens(tokens, synonyms); changed {
		plan.Variants = append(plan.Variants, domain.Variant{
			Text:   expanded,
			Weight: synonymWeight,
			Reason: "synonym",
		})
	}

	return plan
}

// rewriteTokens replaces every token found in the table and reports whether
// anything changed.
func rewriteTokens(tokens []string, table map[string]string) (string, bool) {
	out := make([]string, len(tokens))
	changed := false
	for i, t := range tokens {
		if full, ok := table[t]; ok {
			out[i] = full
			changed = true
		} else {
			out[i] = t
		}
	}
	return strings.Join(out, " "), changed
}
