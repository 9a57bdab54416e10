package llm

import (
	"context"
	"fmt"
	"strings"
)

// GenerateOptions carries per-call model parameters.
type GenerateOptions struct {
	// Model overrides the client's default chat model when set. The planner
	// stages use this to run on a cheaper model than answer generation.
	Model       string
	Temperature float64
	MaxTokens   int
}

// DeltaHandler receives streaming text fragments.
type DeltaHandler func(delta string) error

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	StreamGenerate(ctx context.Context, prompt string, opts GenerateOptions, onDelta DeltaHandler) (string, error)
}

// Embedder converts text to an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client combines the collaborator surfaces the pipeline consumes.
type Client interface {
	Generator
	Embedder
}

// GenerationError marks a failed text generation call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// EmbeddingError marks a failed embedding call.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding failed: %v", e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// Config controls client construction.
type Config struct {
	Mode         string
	APIKey       string
	BaseURL      string
	ChatModel    string
	PlannerModel string
	EmbedModel   string
}

// NewClient builds a Client for the configured mode. "auto" picks Gemini when
// an API key is present and falls back to the deterministic mock otherwise.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if cfg.APIKey != "" {
			return NewGeminiClient(ctx, cfg)
		}
		return NewMockClient(), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for gemini mode")
		}
		return NewGeminiClient(ctx, cfg)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm mode %q", cfg.Mode)
	}
}
