package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/heyoon/twinchat/internal/gate"
	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/policy"
)

// Plan decides what the answer stage needs: whether the question is worth
// answering at all, and whether vector retrieval would add anything beyond
// the static profile context.
type Plan struct {
	Relevant          bool `json:"relevant"`
	RetrievalRequired bool `json:"retrievalRequired"`
}

const planPromptFormat = `You plan answer generation for a personal profile assistant. Given the standalone question below, decide two things:
- "relevant": is it about the profile owner (research, publications, education, experience, projects, skills, awards) or small talk with the assistant?
- "retrievalRequired": does answering need detailed documents (paper abstracts, project write-ups) beyond a short profile summary? Greetings and simple biographical facts do not.

Respond with JSON only, for example {"relevant": true, "retrievalRequired": false}.

Question: %s`

// Planner produces retrieval plans on the cheap model.
type Planner struct {
	generator    llm.Generator
	plannerModel string
}

func NewPlanner(generator llm.Generator, plannerModel string) *Planner {
	return &Planner{generator: generator, plannerModel: plannerModel}
}

// PlanRetrieval asks the planner model for a plan. Failures fail open to the
// most capable path: relevant and retrieval required.
func (p *Planner) PlanRetrieval(ctx context.Context, question string) Plan {
	prompt := fmt.Sprintf(planPromptFormat, question)
	raw, err := p.generator.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       p.plannerModel,
		Temperature: 0,
		MaxTokens:   64,
	})
	if err != nil {
		return planFallback(err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(gate.StripJSONFences(raw)), &plan); err != nil {
		return planFallback(err)
	}
	return plan
}

func planFallback(err error) Plan {
	rule := policy.For(policy.RetrievalPlan)
	log.Printf("retrieval planning failed, %s: %v", rule.Fallback, err)
	open := rule.FailsOpen()
	return Plan{Relevant: open, RetrievalRequired: open}
}
