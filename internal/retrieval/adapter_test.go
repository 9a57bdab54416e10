package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/heyoon/twinchat/internal/vectordb"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2}, nil
}

type stubSearcher struct {
	matches []vectordb.Match
	err     error
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, _ int) ([]vectordb.Match, error) {
	return s.matches, s.err
}

func TestFetchNormalizesMetadataDefaults(t *testing.T) {
	searcher := &stubSearcher{matches: []vectordb.Match{
		{ID: "a", Score: 0.9, Metadata: vectordb.MatchMetadata{Text: "full text", DocType: "publication"}},
		{ID: "b", Score: 0.5},
	}}
	a := NewAdapter(&stubEmbedder{}, searcher, 5)

	result := a.Fetch(context.Background(), "query")
	if len(result.Items) != 2 {
		t.Fatalf("Fetch() items = %d, want 2", len(result.Items))
	}
	if result.Items[0].Text != "full text" || result.Items[0].DocType != "publication" {
		t.Fatalf("first item = %+v", result.Items[0])
	}
	if result.Items[1].Text != "No content available" {
		t.Fatalf("missing text should default, got %q", result.Items[1].Text)
	}
	if result.Items[1].DocType != "unknown" {
		t.Fatalf("missing doc type should default, got %q", result.Items[1].DocType)
	}
}

func TestFetchFallsBackToPageContent(t *testing.T) {
	searcher := &stubSearcher{matches: []vectordb.Match{
		{ID: "a", Metadata: vectordb.MatchMetadata{PageContent: "page body"}},
	}}
	a := NewAdapter(&stubEmbedder{}, searcher, 5)

	result := a.Fetch(context.Background(), "query")
	if result.Items[0].Text != "page body" {
		t.Fatalf("Text = %q, want pageContent fallback", result.Items[0].Text)
	}
}

func TestFetchEmbeddingFailureYieldsEmptyResult(t *testing.T) {
	a := NewAdapter(&stubEmbedder{err: errors.New("down")}, &stubSearcher{}, 5)
	if result := a.Fetch(context.Background(), "query"); !result.Empty() {
		t.Fatalf("embedding failure should yield an empty result")
	}
}

func TestFetchSearchFailureYieldsEmptyResult(t *testing.T) {
	a := NewAdapter(&stubEmbedder{}, &stubSearcher{err: errors.New("down")}, 5)
	if result := a.Fetch(context.Background(), "query"); !result.Empty() {
		t.Fatalf("search failure should yield an empty result")
	}
}

func TestFetchWithoutSearcherIsEmpty(t *testing.T) {
	a := NewAdapter(&stubEmbedder{}, nil, 5)
	if result := a.Fetch(context.Background(), "query"); !result.Empty() {
		t.Fatalf("no searcher configured should yield an empty result")
	}
}

func TestResultContextString(t *testing.T) {
	r := Result{Items: []ContextItem{
		{Text: "body", DocType: "publication", Summary: "sum", Keywords: []string{"a", "b"}, Source: "papers"},
	}}
	got := r.ContextString()
	for _, want := range []string{"[publication]", "(papers)", "body", "Summary: sum", "Keywords: a, b"} {
		if !strings.Contains(got, want) {
			t.Fatalf("ContextString() missing %q:\n%s", want, got)
		}
	}
	if (Result{}).ContextString() != "" {
		t.Fatalf("empty result should render empty context")
	}
}
