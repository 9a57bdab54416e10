package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/policy"
)

// Decision is the outcome of the relevance gate.
type Decision struct {
	Relevant bool
	// Stage names what settled the decision: "pattern" or "classifier".
	Stage string
}

// relevantPatterns short-circuit to accept: questions that plainly target the
// profile never pay for a classifier call.
var relevantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hello|hi|hey|greetings|good (morning|afternoon|evening))\b`),
	regexp.MustCompile(`(?i)\b(what do you|you are|your)\b`),
	regexp.MustCompile(`(?i)\b(research|paper|publication|thesis|dissertation)\b`),
	regexp.MustCompile(`(?i)\b(education|degree|school|university|major|gpa)\b`),
	regexp.MustCompile(`(?i)\b(experience|career|work|internship|job|company)\b`),
	regexp.MustCompile(`(?i)\b(project|skill|award|honor|cv|resume|portfolio)\b`),
	regexp.MustCompile(`(?i)\b(who are you|about you|yourself|your name|introduce)\b`),
	regexp.MustCompile(`안녕|반가워|인사|연구|논문|학력|학위|전공|경력|경험|프로젝트|기술|수상|이력서|소개`),
}

// irrelevantPatterns short-circuit to reject: topics this assistant will
// never have profile knowledge about.
var irrelevantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(weather|forecast|temperature)\b`),
	regexp.MustCompile(`(?i)\b(recipe|cooking|restaurant)\b`),
	regexp.MustCompile(`(?i)\b(stock price|bitcoin|crypto|lottery)\b`),
	regexp.MustCompile(`(?i)\b(sports score|football match|baseball game)\b`),
	regexp.MustCompile(`(?i)write (me )?(a|some) (poem|song|essay|story) about`),
	regexp.MustCompile(`날씨|요리법|주식 ?시세|로또|복권`),
}

const classifierPromptFormat = `You screen questions for a personal profile assistant. The assistant only answers questions about one person: their research, publications, education, work experience, projects, skills, and awards, plus greetings and small talk directed at the assistant itself.

Respond with JSON only: {"relevant": true} or {"relevant": false}.

Question: %s`

// Gate decides whether a message is in scope for the profile assistant. Two
// tiers: cheap pattern sets settle the clear cases, an LLM classifier settles
// the rest. Classifier failures fail open so an outage never mutes the
// assistant.
type Gate struct {
	generator    llm.Generator
	plannerModel string
}

func NewGate(generator llm.Generator, plannerModel string) *Gate {
	return &Gate{generator: generator, plannerModel: plannerModel}
}

// Check classifies one message. Greetings and empty-ish messages count as
// relevant; the orchestrator handles blank input before the gate runs.
func (g *Gate) Check(ctx context.Context, message string) Decision {
	for _, p := range irrelevantPatterns {
		if p.MatchString(message) {
			return Decision{Relevant: false, Stage: "pattern"}
		}
	}
	for _, p := range relevantPatterns {
		if p.MatchString(message) {
			return Decision{Relevant: true, Stage: "pattern"}
		}
	}

	prompt := fmt.Sprintf(classifierPromptFormat, message)
	raw, err := g.generator.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       g.plannerModel,
		Temperature: 0,
		MaxTokens:   64,
	})
	if err != nil {
		return classifierFallback(err)
	}

	var verdict struct {
		Relevant bool `json:"relevant"`
	}
	if err := json.Unmarshal([]byte(StripJSONFences(raw)), &verdict); err != nil {
		return classifierFallback(err)
	}
	return Decision{Relevant: verdict.Relevant, Stage: "classifier"}
}

func classifierFallback(err error) Decision {
	rule := policy.For(policy.RelevanceGate)
	log.Printf("relevance classifier unavailable, %s: %v", rule.Fallback, err)
	return Decision{Relevant: rule.FailsOpen(), Stage: "classifier"}
}

// StripJSONFences removes a surrounding markdown code fence from model output
// so the JSON inside can be parsed.
func StripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
