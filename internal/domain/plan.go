package domain

// Variant is one weighted rewrite of a query produced by the query planner.
type Variant struct {
	Text   string
	Weight float64
	Reason string
}

// QueryPlan is the compiled form of a free-text query: the normalized
// primary text plus an ordered set of weighted variants. Weights are
// non-negative; the primary variant carries weight 1.0.
type QueryPlan struct {
	Primary  string
	Variants []Variant
}

// All returns the primary variant followed by the rewrites, so callers can
// iterate every lexical query the plan demands. A plan without explicit
// variants still yields the primary at weight 1.0.
func (p QueryPlan) All() []Variant {
	out := make([]Variant, 0, len(p.Variants)+1)
	out = append(out, Variant{Text: p.Primary, Weight: 1.0, Reason: "primary"})
	out = append(out, p.Variants...)
	return out
}
