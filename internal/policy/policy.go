// Package policy declares in one table how each pipeline stage behaves when
// its collaborator fails. Planning stages fail open so a degraded provider
// narrows nothing; only answer generation itself fails the turn.
package policy

// Mode says whether a failed stage lets the request continue.
type Mode string

const (
	// FailOpen continues the request on the stage's fallback behavior.
	FailOpen Mode = "fail-open"
	// FailClosed ends the turn with a user-facing failure message.
	FailClosed Mode = "fail-closed"
)

// Stage identifies one pipeline call site.
type Stage string

const (
	RelevanceGate    Stage = "relevance-gate"
	QueryRewrite     Stage = "query-rewrite"
	RetrievalPlan    Stage = "retrieval-plan"
	QueryEmbedding   Stage = "query-embedding"
	VectorSearch     Stage = "vector-search"
	RejectionWording Stage = "rejection-wording"
	AnswerGeneration Stage = "answer-generation"
)

// Rule is one row of the failure table: the mode plus the degraded behavior
// the call site applies.
type Rule struct {
	Mode     Mode
	Fallback string
}

// FailsOpen reports whether the stage lets the request continue on failure.
func (r Rule) FailsOpen() bool { return r.Mode == FailOpen }

var table = map[Stage]Rule{
	RelevanceGate:    {FailOpen, "accepting the message"},
	QueryRewrite:     {FailOpen, "keeping the original question"},
	RetrievalPlan:    {FailOpen, "assuming retrieval is required"},
	QueryEmbedding:   {FailOpen, "answering without retrieved context"},
	VectorSearch:     {FailOpen, "answering without retrieved context"},
	RejectionWording: {FailOpen, "using the canned decline"},
	AnswerGeneration: {FailClosed, "replying with a localized apology"},
}

// For returns the failure rule for stage. Unknown stages fail closed so a
// missing table row can never silently widen behavior.
func For(stage Stage) Rule {
	if rule, ok := table[stage]; ok {
		return rule
	}
	return Rule{Mode: FailClosed, Fallback: "treating the failure as fatal"}
}

// Stages lists every stage with a declared rule, in pipeline order.
func Stages() []Stage {
	return []Stage{
		RelevanceGate,
		QueryRewrite,
		RetrievalPlan,
		QueryEmbedding,
		VectorSearch,
		RejectionWording,
		AnswerGeneration,
	}
}
