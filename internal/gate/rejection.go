package gate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/policy"
)

// Canned declines used when rejection generation itself fails.
const (
	fallbackRejectionEN = "I'm here to answer questions about this profile: research, education, work experience, projects, and related topics. Could you ask me something about those?"
	fallbackRejectionKO = "저는 이 프로필에 관한 질문에 답변해 드리는 도우미입니다. 연구, 학력, 경력, 프로젝트 등에 대해 질문해 주세요."
)

const rejectionPromptFormat = `You are a friendly assistant for %s's personal site. The visitor asked something outside your scope. Write a short, warm decline (at most two sentences) in %s that explains you only answer questions about %s's profile, and invite a question about their research, education, experience, or projects. Do not answer the original question.

Visitor message: %s

Rejection message:`

// RejectionMessage produces a polite, localized decline for an out-of-scope
// message. Generation runs on the planner model; any failure falls back to a
// canned decline in the session language.
func RejectionMessage(ctx context.Context, generator llm.Generator, plannerModel, personaName, lang, message string) string {
	langName := "English"
	if lang == LangKorean {
		langName = "Korean"
	}

	prompt := fmt.Sprintf(rejectionPromptFormat, personaName, langName, personaName, message)
	reply, err := generator.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       plannerModel,
		Temperature: 0.5,
		MaxTokens:   128,
	})
	if err != nil {
		rule := policy.For(policy.RejectionWording)
		log.Printf("rejection generation failed, %s: %v", rule.Fallback, err)
		return FallbackRejection(lang)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return FallbackRejection(lang)
	}
	return reply
}

// FallbackRejection returns the canned decline for lang.
func FallbackRejection(lang string) string {
	if lang == LangKorean {
		return fallbackRejectionKO
	}
	return fallbackRejectionEN
}
