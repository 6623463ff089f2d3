package gwtypes

// Usage holds token accounting for one completion, computed locally by
// the tokenizer (spec.md §4.6 "Usage accounting") with an optional
// upstream-reported auxiliary counter.
type Usage struct {
	InputTokens  int
	OutputTokens int

	// UpstreamCredits, when present, is the raw value of an upstream
	// Usage event; surfaced as an auxiliary counter only, never used to
	// replace InputTokens/OutputTokens (spec.md §4.6).
	UpstreamCredits *float64
}

func (u Usage) TotalTokens() int { return u.InputTokens + u.OutputTokens }
