package retrieval

import (
	"context"
	"log"
	"strings"

	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/policy"
	"github.com/heyoon/twinchat/internal/vectordb"
)

// Defaults applied to matches whose index metadata is incomplete.
const (
	defaultContent = "No content available"
	defaultDocType = "unknown"
)

// ContextItem is one retrieved knowledge fragment, normalized for prompt
// assembly: content is never empty and the document type always has a value.
type ContextItem struct {
	Text     string
	DocType  string
	Summary  string
	Keywords []string
	Source   string
	Score    float64
}

// Result is the outcome of one retrieval pass.
type Result struct {
	Items []ContextItem
}

// Empty reports whether retrieval contributed nothing.
func (r Result) Empty() bool { return len(r.Items) == 0 }

// ContextString renders the retrieved fragments as a prompt section.
func (r Result) ContextString() string {
	if r.Empty() {
		return ""
	}
	var b strings.Builder
	for i, item := range r.Items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + item.DocType + "]")
		if item.Source != "" {
			b.WriteString(" (" + item.Source + ")")
		}
		b.WriteString("\n" + item.Text)
		if item.Summary != "" {
			b.WriteString("\nSummary: " + item.Summary)
		}
		if len(item.Keywords) > 0 {
			b.WriteString("\nKeywords: " + strings.Join(item.Keywords, ", "))
		}
	}
	return b.String()
}

// Adapter embeds the query and fetches nearest neighbors from the vector
// database. Retrieval is strictly best-effort: every failure degrades to an
// empty result so the answer stage falls back to the static profile context.
type Adapter struct {
	embedder llm.Embedder
	searcher vectordb.Searcher
	topK     int
}

func NewAdapter(embedder llm.Embedder, searcher vectordb.Searcher, topK int) *Adapter {
	if topK <= 0 {
		topK = 5
	}
	return &Adapter{embedder: embedder, searcher: searcher, topK: topK}
}

// Fetch retrieves context for the standalone query. A nil searcher (no index
// configured) and all failure modes alike yield an empty result, never an
// error.
func (a *Adapter) Fetch(ctx context.Context, query string) Result {
	if a == nil || a.searcher == nil || a.embedder == nil {
		return Result{}
	}

	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return degraded(policy.QueryEmbedding, err)
	}

	matches, err := a.searcher.Search(ctx, vector, a.topK)
	if err != nil {
		return degraded(policy.VectorSearch, err)
	}

	items := make([]ContextItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, normalizeMatch(m))
	}
	return Result{Items: items}
}

func degraded(stage policy.Stage, err error) Result {
	rule := policy.For(stage)
	log.Printf("%s failed, %s: %v", stage, rule.Fallback, err)
	return Result{}
}

func normalizeMatch(m vectordb.Match) ContextItem {
	text := strings.TrimSpace(m.Metadata.Text)
	if text == "" {
		text = strings.TrimSpace(m.Metadata.PageContent)
	}
	if text == "" {
		text = defaultContent
	}

	docType := strings.TrimSpace(m.Metadata.DocType)
	if docType == "" {
		docType = defaultDocType
	}

	return ContextItem{
		Text:     text,
		DocType:  docType,
		Summary:  strings.TrimSpace(m.Metadata.Summary),
		Keywords: m.Metadata.Keywords,
		Source:   strings.TrimSpace(m.Metadata.Source),
		Score:    m.Score,
	}
}
