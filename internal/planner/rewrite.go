package planner

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/policy"
)

const rewritePromptFormat = `Rewrite the user's question as a standalone question that needs no conversation history to understand. Resolve pronouns and references ("it", "that paper", "the second one") using the conversation below. Keep the original language and intent. If the question is already standalone, return it unchanged. Return only the rewritten question, nothing else.

Conversation so far:
%s

Current user question: %s

Rewritten question:`

var questionWordPrefix = regexp.MustCompile(`(?i)^(what|which|who|whom|whose|when|where|why|how)\b`)

// Rewriter turns history-dependent questions into standalone ones so the
// retrieval embedding carries the full meaning.
type Rewriter struct {
	generator    llm.Generator
	plannerModel string
}

func NewRewriter(generator llm.Generator, plannerModel string) *Rewriter {
	return &Rewriter{generator: generator, plannerModel: plannerModel}
}

// Rewrite produces the standalone form of question. On any failure the
// original question is returned; a degraded rewrite must never block the
// pipeline.
func (r *Rewriter) Rewrite(ctx context.Context, historyContext, question string) string {
	prompt := fmt.Sprintf(rewritePromptFormat, historyContext, question)
	raw, err := r.generator.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       r.plannerModel,
		Temperature: 0,
		MaxTokens:   256,
	})
	if err != nil {
		rule := policy.For(policy.QueryRewrite)
		log.Printf("query rewrite failed, %s: %v", rule.Fallback, err)
		return question
	}

	rewritten := strings.TrimSpace(raw)
	// Some models echo the label despite the instruction.
	if idx := strings.LastIndex(rewritten, "Rewritten question:"); idx >= 0 {
		rewritten = strings.TrimSpace(rewritten[idx+len("Rewritten question:"):])
	}
	if rewritten == "" {
		return question
	}
	return rewritten
}

// IsLikelyQuestion reports whether text reads as a direct question: it ends
// with a question mark or opens with an interrogative word.
func IsLikelyQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	return questionWordPrefix.MatchString(trimmed)
}
