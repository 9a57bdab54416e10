package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/heyoon/twinchat/internal/compose"
	"github.com/heyoon/twinchat/internal/gate"
	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/memory"
	"github.com/heyoon/twinchat/internal/observability"
	"github.com/heyoon/twinchat/internal/planner"
	"github.com/heyoon/twinchat/internal/retrieval"
	"github.com/heyoon/twinchat/internal/session"
	"github.com/heyoon/twinchat/internal/trace"
	"github.com/heyoon/twinchat/internal/vectordb"
)

// fakeClient scripts each pipeline stage by recognizing its prompt shape.
type fakeClient struct {
	rewriteReply string
	planReply    string
	gateReply    string
	answerReply  string
	answerErr    error

	answerCalls int
	embedCalls  int
	gateCalls   int
}

func (f *fakeClient) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	switch {
	case strings.Contains(prompt, `"retrievalRequired"`):
		if f.planReply != "" {
			return f.planReply, nil
		}
		return `{"relevant": true, "retrievalRequired": false}`, nil
	case strings.Contains(prompt, `"relevant"`):
		f.gateCalls++
		if f.gateReply != "" {
			return f.gateReply, nil
		}
		return `{"relevant": true}`, nil
	case strings.Contains(prompt, "Rewritten question:"):
		if f.rewriteReply != "" {
			return f.rewriteReply, nil
		}
		return echoQuestion(prompt), nil
	case strings.Contains(prompt, "Rejection message:"):
		return "That's outside what I can help with here.", nil
	default:
		f.answerCalls++
		if f.answerErr != nil {
			return "", f.answerErr
		}
		if f.answerReply != "" {
			return f.answerReply, nil
		}
		return "Here is what I can share about that.", nil
	}
}

func (f *fakeClient) StreamGenerate(ctx context.Context, prompt string, opts llm.GenerateOptions, onDelta llm.DeltaHandler) (string, error) {
	text, err := f.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if onDelta != nil {
		if err := onDelta(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (f *fakeClient) Embed(_ context.Context, _ string) ([]float32, error) {
	f.embedCalls++
	return []float32{0.1, 0.2}, nil
}

func echoQuestion(prompt string) string {
	const marker = "Current user question:"
	idx := strings.LastIndex(prompt, marker)
	rest := prompt[idx+len(marker):]
	if end := strings.Index(rest, "\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, []float32, int) ([]vectordb.Match, error) {
	return nil, &vectordb.RetrievalError{Err: context.DeadlineExceeded}
}

func newTestOrchestrator(t *testing.T, client llm.Client, searcher vectordb.Searcher) *Orchestrator {
	t.Helper()
	sessions := session.NewManager(time.Hour)
	profile := memory.NewProfileStore(map[string][]memory.Record{
		"education": {{Degree: "M.S.", School: "Example University", Time: "2023"}},
	})
	metrics := observability.NewMetrics("test", nil)
	return NewOrchestrator(
		sessions,
		profile,
		client,
		gate.NewGate(client, "planner-model"),
		planner.NewRewriter(client, "planner-model"),
		planner.NewPlanner(client, "planner-model"),
		retrieval.NewAdapter(client, searcher, 5),
		compose.NewAssembler("Heyoon", "a researcher", compose.LinkStyleMarker),
		trace.NewNoop(),
		metrics,
		Options{ChatModel: "chat-model", PlannerModel: "planner-model", Temperature: 0.7, MaxTokens: 512, HistoryLimit: 10, PersonaName: "Heyoon"},
	)
}

func TestHandleChatRequestAnswersProfileQuestion(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)

	resp := o.HandleChatRequest(context.Background(), Request{Message: "Tell me about your research"})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if resp.Response == "" || resp.SessionID == "" {
		t.Fatalf("Response = %+v, want answer and session id", resp)
	}

	sess, err := o.Sessions().Get(resp.SessionID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Memory.Len() != 2 {
		t.Fatalf("transcript len = %d, want 2", sess.Memory.Len())
	}
}

func TestHandleChatRequestGreetsNewVisitor(t *testing.T) {
	client := &fakeClient{answerReply: "Hi! Ask me anything about my research or projects."}
	o := newTestOrchestrator(t, client, nil)

	resp := o.HandleChatRequest(context.Background(), Request{Message: "hello"})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if resp.Response == "" || resp.SessionID == "" {
		t.Fatalf("Response = %+v, want greeting and session id", resp)
	}
	if client.gateCalls != 0 {
		t.Fatalf("greeting invoked the relevance classifier %d times, want 0", client.gateCalls)
	}
	if client.answerCalls != 1 {
		t.Fatalf("answerCalls = %d, want 1", client.answerCalls)
	}

	sess, err := o.Sessions().Get(resp.SessionID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Memory.Len() != 2 {
		t.Fatalf("transcript len = %d, want 2", sess.Memory.Len())
	}
}

func TestHandleChatRequestRejectsOffTopic(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)

	resp := o.HandleChatRequest(context.Background(), Request{Message: "What's the weather forecast for tomorrow?"})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if !strings.Contains(resp.Response, "outside what I can help with") {
		t.Fatalf("Response = %q, want rejection", resp.Response)
	}
	if client.answerCalls != 0 {
		t.Fatalf("rejected turn must not reach answer generation")
	}

	// Rejections still count as a full turn.
	sess, _ := o.Sessions().Get(resp.SessionID)
	if sess.Memory.Len() != 2 {
		t.Fatalf("transcript len = %d, want 2", sess.Memory.Len())
	}
}

func TestHandleChatRequestEmptyMessage(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	resp := o.HandleChatRequest(context.Background(), Request{Message: "   "})
	if resp.Error == "" {
		t.Fatalf("blank message should error")
	}
	if resp.Response != "" {
		t.Fatalf("blank message should carry no answer")
	}
}

func TestHandleChatRequestEchoesRewrittenQuestion(t *testing.T) {
	client := &fakeClient{rewriteReply: "What is the Adaptive Context Windows paper about?"}
	o := newTestOrchestrator(t, client, nil)

	resp := o.HandleChatRequest(context.Background(), Request{Message: "tell me more about that paper"})
	if resp.Response != "What is the Adaptive Context Windows paper about?" {
		t.Fatalf("Response = %q, want rewritten question echoed verbatim", resp.Response)
	}
	if client.answerCalls != 0 {
		t.Fatalf("clarification echo must skip answer generation")
	}
	if client.embedCalls != 0 {
		t.Fatalf("clarification echo must skip retrieval")
	}

	sess, _ := o.Sessions().Get(resp.SessionID)
	if sess.Memory.Len() != 2 {
		t.Fatalf("transcript len = %d, want 2", sess.Memory.Len())
	}
}

func TestHandleChatRequestSurvivesSearchFailure(t *testing.T) {
	client := &fakeClient{planReply: `{"relevant": true, "retrievalRequired": true}`}
	o := newTestOrchestrator(t, client, failingSearcher{})

	resp := o.HandleChatRequest(context.Background(), Request{Message: "Tell me about your research in detail"})
	if resp.Error != "" {
		t.Fatalf("search failure must not fail the turn: %q", resp.Error)
	}
	if resp.Response == "" {
		t.Fatalf("expected an answer without retrieved context")
	}
	if client.answerCalls != 1 {
		t.Fatalf("answerCalls = %d, want 1", client.answerCalls)
	}
}

func TestHandleChatRequestGenerationFailureApologizesInKorean(t *testing.T) {
	client := &fakeClient{answerErr: &llm.GenerationError{Err: context.DeadlineExceeded}}
	o := newTestOrchestrator(t, client, nil)

	resp := o.HandleChatRequest(context.Background(), Request{Message: "당신의 연구에 대해 알려주세요"})
	if resp.Error != "" {
		t.Fatalf("generation failure should degrade, not error: %q", resp.Error)
	}
	if resp.Response != Apology(gate.LangKorean) {
		t.Fatalf("Response = %q, want Korean apology", resp.Response)
	}

	// Failed turns are still recorded.
	sess, _ := o.Sessions().Get(resp.SessionID)
	if sess.Memory.Len() != 2 {
		t.Fatalf("transcript len = %d, want 2", sess.Memory.Len())
	}
}

func TestHandleChatRequestKeepsSessionAcrossTurns(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)

	first := o.HandleChatRequest(context.Background(), Request{Message: "Tell me about your education"})
	second := o.HandleChatRequest(context.Background(), Request{Message: "And your projects?", SessionID: first.SessionID})
	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed across turns: %q -> %q", first.SessionID, second.SessionID)
	}

	sess, _ := o.Sessions().Get(first.SessionID)
	if sess.Memory.Len() != 4 {
		t.Fatalf("transcript len = %d, want 4", sess.Memory.Len())
	}
}

func TestHandleChatRequestSeedsClientHistory(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(t, client, nil)

	resp := o.HandleChatRequest(context.Background(), Request{
		Message: "Tell me about your research",
		History: []HistoryTurn{
			{Role: "user", Text: "hi"},
			{Role: "model", Text: "hello!"},
		},
	})

	sess, _ := o.Sessions().Get(resp.SessionID)
	if sess.Memory.Len() != 4 {
		t.Fatalf("transcript len = %d, want seeded history plus new turn", sess.Memory.Len())
	}
	turns := sess.Memory.Context(0)
	if turns[1].Role != memory.RoleAssistant {
		t.Fatalf("model role should normalize to assistant: %+v", turns[1])
	}
}

func TestHandleChatStreamDeliversDeltasAndFinal(t *testing.T) {
	client := &fakeClient{answerReply: "Streaming answer about my research."}
	o := newTestOrchestrator(t, client, nil)

	var deltas []string
	resp := o.HandleChatStream(context.Background(), Request{Message: "Tell me about your research"}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if len(deltas) == 0 {
		t.Fatalf("expected at least one delta")
	}
	if resp.Response != "Streaming answer about my research." {
		t.Fatalf("final response = %q", resp.Response)
	}
}

func TestDeleteSessionRequiresID(t *testing.T) {
	o := newTestOrchestrator(t, &fakeClient{}, nil)
	if err := o.DeleteSession("  "); err == nil {
		t.Fatalf("blank id should fail")
	}
}
