package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/heyoon/twinchat/internal/compose"
	"github.com/heyoon/twinchat/internal/gate"
	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/memory"
	"github.com/heyoon/twinchat/internal/observability"
	"github.com/heyoon/twinchat/internal/planner"
	"github.com/heyoon/twinchat/internal/policy"
	"github.com/heyoon/twinchat/internal/retrieval"
	"github.com/heyoon/twinchat/internal/session"
	"github.com/heyoon/twinchat/internal/trace"
)

// Request is one inbound chat turn.
type Request struct {
	Message   string        `json:"message"`
	History   []HistoryTurn `json:"history,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
}

// HistoryTurn is a client-supplied prior exchange, used to seed a fresh
// session when the client kept history across a server restart.
type HistoryTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Response is the outcome of one chat turn. Exactly one of Response and Error
// is set.
type Response struct {
	Response  string `json:"response,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Options carries the generation parameters the orchestrator applies.
type Options struct {
	ChatModel    string
	PlannerModel string
	Temperature  float64
	MaxTokens    int
	HistoryLimit int
	PersonaName  string
}

// Orchestrator runs the full conversation pipeline: gate, rewrite, plan,
// retrieve, assemble, generate, inject links, record the turn.
type Orchestrator struct {
	sessions  *session.Manager
	profile   *memory.ProfileStore
	client    llm.Client
	gate      *gate.Gate
	rewriter  *planner.Rewriter
	planner   *planner.Planner
	retriever *retrieval.Adapter
	assembler *compose.Assembler
	tracer    trace.Tracer
	metrics   *observability.Metrics
	opts      Options
}

func NewOrchestrator(
	sessions *session.Manager,
	profile *memory.ProfileStore,
	client llm.Client,
	relevanceGate *gate.Gate,
	rewriter *planner.Rewriter,
	retrievalPlanner *planner.Planner,
	retriever *retrieval.Adapter,
	assembler *compose.Assembler,
	tracer trace.Tracer,
	metrics *observability.Metrics,
	opts Options,
) *Orchestrator {
	if tracer == nil {
		tracer = trace.Noop{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	return &Orchestrator{
		sessions:  sessions,
		profile:   profile,
		client:    client,
		gate:      relevanceGate,
		rewriter:  rewriter,
		planner:   retrievalPlanner,
		retriever: retriever,
		assembler: assembler,
		tracer:    tracer,
		metrics:   metrics,
		opts:      opts,
	}
}

// HandleChatRequest processes one turn and always returns a well-formed
// Response. Panics anywhere in the pipeline degrade to a localized apology so
// a single broken turn cannot take the handler down.
func (o *Orchestrator) HandleChatRequest(ctx context.Context, req Request) Response {
	return o.handle(ctx, req, nil)
}

// HandleChatStream behaves like HandleChatRequest but forwards raw generation
// deltas to onDelta as they arrive. The returned Response carries the final
// post-processed text; clients replace the accumulated deltas with it.
func (o *Orchestrator) HandleChatStream(ctx context.Context, req Request, onDelta llm.DeltaHandler) Response {
	return o.handle(ctx, req, onDelta)
}

func (o *Orchestrator) handle(ctx context.Context, req Request, onDelta llm.DeltaHandler) (resp Response) {
	lang, _ := gate.DetectLanguage(req.Message)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("chat pipeline panic: %v", r)
			o.countOutcome(observability.OutcomeError)
			resp = Response{Response: Apology(lang), SessionID: req.SessionID}
		}
	}()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{Error: EmptyMessageError(lang), SessionID: req.SessionID}
	}

	sess, created := o.sessions.GetOrCreate(req.SessionID)
	sess.Lock()
	defer sess.Unlock()
	sess.Touch()

	langDetected, confident := gate.DetectLanguage(message)
	sess.SetLanguage(langDetected, confident)
	lang = sess.Language

	if created && len(req.History) > 0 {
		o.seedHistory(sess, req.History)
	}

	tr := o.tracer.StartTrace("chat", sess.ID)
	defer func() {
		tr.End(message, resp.Response)
	}()

	// Relevance gate.
	gateSpan := tr.Span("relevance-gate")
	decision := o.gate.Check(ctx, message)
	gateSpan.End(message, decision)
	o.countGate(decision)
	if !decision.Relevant {
		reply := gate.RejectionMessage(ctx, o.client, o.opts.PlannerModel, o.opts.PersonaName, lang, message)
		o.recordTurn(sess, message, reply)
		o.countOutcome(observability.OutcomeRejected)
		return Response{Response: reply, SessionID: sess.ID}
	}

	historyContext := sess.Memory.ContextString(o.opts.HistoryLimit)

	// Standalone rewrite.
	rewriteSpan := tr.Span("query-rewrite")
	standalone := o.rewriter.Rewrite(ctx, historyContext, message)
	rewriteSpan.End(message, standalone)

	// A rewrite that produced a direct question differing from what the user
	// typed is echoed back for confirmation instead of being answered on the
	// user's behalf.
	if standalone != message && planner.IsLikelyQuestion(standalone) {
		o.recordTurn(sess, message, standalone)
		o.countOutcome(observability.OutcomeClarified)
		tr.Event("clarification-echo", message, standalone)
		return Response{Response: standalone, SessionID: sess.ID}
	}

	// Retrieval plan.
	planSpan := tr.Span("retrieval-plan")
	plan := o.planner.PlanRetrieval(ctx, standalone)
	planSpan.End(standalone, plan)
	if !plan.Relevant {
		reply := gate.RejectionMessage(ctx, o.client, o.opts.PlannerModel, o.opts.PersonaName, lang, message)
		o.recordTurn(sess, message, reply)
		o.countOutcome(observability.OutcomeRejected)
		return Response{Response: reply, SessionID: sess.ID}
	}

	var retrieved retrieval.Result
	if plan.RetrievalRequired {
		fetchSpan := tr.Span("retrieval")
		retrieved = o.retriever.Fetch(ctx, standalone)
		fetchSpan.End(standalone, len(retrieved.Items))
	}

	// Conversation construct, rebuilt only when profile inputs changed.
	profileContext := o.profile.ContextForLLM()
	links := o.profile.SiteLinks()
	if sess.Construct.Stale(profileContext, links) {
		sess.Construct = o.assembler.BuildConstruct(profileContext, links)
	}

	prompt := o.assembler.BuildPrompt(sess.Construct, historyContext, retrieved, standalone, lang)

	started := time.Now()
	answer, err := o.generate(ctx, prompt, onDelta)
	ended := time.Now()
	if o.metrics != nil {
		o.metrics.GenerationSeconds.Observe(ended.Sub(started).Seconds())
	}
	tr.Generation(trace.Generation{
		Name:        "answer",
		Model:       o.opts.ChatModel,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
		Input:       prompt,
		Output:      answer,
		StartedAt:   started,
		EndedAt:     ended,
		Metadata:    map[string]any{"retrieved": len(retrieved.Items), "language": lang},
	})
	if err != nil {
		rule := policy.For(policy.AnswerGeneration)
		log.Printf("answer generation failed, %s: %v", rule.Fallback, err)
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues("gemini").Inc()
		}
		reply := Apology(lang)
		o.recordTurn(sess, message, reply)
		o.countOutcome(observability.OutcomeError)
		return Response{Response: reply, SessionID: sess.ID}
	}

	final := o.assembler.InjectLinks(strings.TrimSpace(answer), sess.Construct)
	o.recordTurn(sess, message, final)
	o.countOutcome(observability.OutcomeAnswered)
	return Response{Response: final, SessionID: sess.ID}
}

func (o *Orchestrator) generate(ctx context.Context, prompt string, onDelta llm.DeltaHandler) (string, error) {
	opts := llm.GenerateOptions{
		Model:       o.opts.ChatModel,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	}
	if onDelta != nil {
		return o.client.StreamGenerate(ctx, prompt, opts, onDelta)
	}
	return o.client.Generate(ctx, prompt, opts)
}

// recordTurn appends the user message and the assistant reply as one atomic
// pair. Every completed request, including rejections and apologies, grows
// the transcript by exactly these two turns.
func (o *Orchestrator) recordTurn(sess *session.Session, userText, assistantText string) {
	sess.Memory.Append(memory.RoleUser, userText)
	sess.Memory.Append(memory.RoleAssistant, assistantText)
}

func (o *Orchestrator) seedHistory(sess *session.Session, history []HistoryTurn) {
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		sess.Memory.Append(memory.NormalizeRole(turn.Role), text)
	}
}

func (o *Orchestrator) countOutcome(outcome string) {
	if o.metrics != nil {
		o.metrics.ChatRequests.WithLabelValues(outcome).Inc()
	}
}

func (o *Orchestrator) countGate(d gate.Decision) {
	if o.metrics == nil {
		return
	}
	verdict := "relevant"
	if !d.Relevant {
		verdict = "irrelevant"
	}
	o.metrics.GateDecisions.WithLabelValues(d.Stage, verdict).Inc()
}

// Sessions exposes the registry for transport-level operations.
func (o *Orchestrator) Sessions() *session.Manager { return o.sessions }

// DeleteSession removes a conversation outright.
func (o *Orchestrator) DeleteSession(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}
	return o.sessions.Delete(id)
}
