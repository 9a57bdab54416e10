package llm

import (
	"context"
	"hash/fnv"
	"strings"
)

// MockClient provides deterministic local replies when no Gemini key is
// configured. It recognizes the pipeline's structured prompts so the full
// request flow works offline and in tests.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Generate(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	return buildMockReply(prompt), nil
}

func (c *MockClient) StreamGenerate(ctx context.Context, prompt string, opts GenerateOptions, onDelta DeltaHandler) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	text := buildMockReply(prompt)
	if onDelta != nil && text != "" {
		if err := onDelta(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

// Embed returns a stable small vector derived from the text so that mock-mode
// retrieval is repeatable.
func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, 8)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)%1000) / 1000
	}
	return vec, nil
}

func buildMockReply(prompt string) string {
	// Structured prompts carry recognizable instruction fragments.
	if strings.Contains(prompt, `"retrievalRequired"`) {
		return `{"relevant": true, "retrievalRequired": false}`
	}
	if strings.Contains(prompt, `"relevant"`) {
		return `{"relevant": true}`
	}
	if strings.Contains(prompt, "Rewritten question:") {
		return questionFromPrompt(prompt)
	}
	if strings.Contains(prompt, "Rejection message:") {
		return "Sorry, that question is outside what I can help with here."
	}
	return "I can tell you about the background, research, and projects on this site."
}

// questionFromPrompt echoes the original question back unchanged, which is
// what the rewriter expects for an already-clear query.
func questionFromPrompt(prompt string) string {
	const marker = "Current user question:"
	idx := strings.LastIndex(prompt, marker)
	if idx < 0 {
		return ""
	}
	rest := prompt[idx+len(marker):]
	if end := strings.Index(rest, "\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
