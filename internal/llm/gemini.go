package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini REST API for generation and the genai SDK for
// embeddings. One attempt per call: upstream failures are classified by the
// caller, never retried here.
type GeminiClient struct {
	apiKey       string
	baseURL      string
	chatModel    string
	plannerModel string
	embedModel   string
	httpClient   *http.Client
	sdk          *genai.Client
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	chatModel := strings.TrimSpace(cfg.ChatModel)
	if chatModel == "" {
		chatModel = "gemini-1.5-pro"
	}
	embedModel := strings.TrimSpace(cfg.EmbedModel)
	if embedModel == "" {
		embedModel = "gemini-embedding-001"
	}

	return &GeminiClient{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		chatModel:    chatModel,
		plannerModel: strings.TrimSpace(cfg.PlannerModel),
		embedModel:   embedModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		sdk: sdk,
	}, nil
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	// Temperature is always sent: the planner stages pin it to 0, which
	// omitempty would silently drop.
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) model(opts GenerateOptions) string {
	if m := strings.TrimSpace(opts.Model); m != "" {
		return m
	}
	return c.chatModel
}

func (c *GeminiClient) buildRequest(prompt string, opts GenerateOptions) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	payload, err := json.Marshal(c.buildRequest(prompt, opts))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model(opts), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("read response: %w", err)}
	}
	if res.StatusCode != http.StatusOK {
		return "", &GenerationError{Err: fmt.Errorf("gemini status %d: %s", res.StatusCode, truncate(string(body), 512))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("parse response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &GenerationError{Err: fmt.Errorf("gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)}
	}

	text := flattenCandidates(parsed)
	if text == "" {
		return "", &GenerationError{Err: fmt.Errorf("empty candidate text")}
	}
	return text, nil
}

func (c *GeminiClient) StreamGenerate(ctx context.Context, prompt string, opts GenerateOptions, onDelta DeltaHandler) (string, error) {
	payload, err := json.Marshal(c.buildRequest(prompt, opts))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model(opts), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &GenerationError{Err: fmt.Errorf("gemini status %d: %s", res.StatusCode, string(body))}
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "" || line == "[DONE]" {
			continue
		}

		var chunk geminiResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		delta := flattenCandidates(chunk)
		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return "", &GenerationError{Err: err}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("stream read: %w", err)}
	}

	text := out.String()
	if text == "" {
		return "", &GenerationError{Err: fmt.Errorf("empty stream")}
	}
	return text, nil
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := c.sdk.Models.EmbedContent(ctx,
		c.embedModel,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "RETRIEVAL_QUERY",
		},
	)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(result.Embeddings) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("no embeddings returned")}
	}
	return result.Embeddings[0].Values, nil
}

func flattenCandidates(resp geminiResponse) string {
	var out strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return out.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
