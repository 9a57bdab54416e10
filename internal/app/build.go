package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/heyoon/twinchat/internal/chat"
	"github.com/heyoon/twinchat/internal/compose"
	"github.com/heyoon/twinchat/internal/config"
	"github.com/heyoon/twinchat/internal/gate"
	"github.com/heyoon/twinchat/internal/httpapi"
	"github.com/heyoon/twinchat/internal/llm"
	"github.com/heyoon/twinchat/internal/memory"
	"github.com/heyoon/twinchat/internal/observability"
	"github.com/heyoon/twinchat/internal/planner"
	"github.com/heyoon/twinchat/internal/retrieval"
	"github.com/heyoon/twinchat/internal/session"
	"github.com/heyoon/twinchat/internal/trace"
	"github.com/heyoon/twinchat/internal/vectordb"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Manager
	Orchestrator *chat.Orchestrator
	Metrics      *observability.Metrics
}

// Build wires the whole service from config. Optional collaborators (vector
// index, tracing) degrade to no-ops when unconfigured; required ones fail the
// build.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	sessions := session.NewManager(cfg.SessionMaxIdle)
	metrics := observability.NewMetrics(cfg.MetricsNamespace, func() float64 {
		return float64(sessions.Count())
	})

	profile, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.ProfileDataPath)
	if err != nil {
		return nil, fmt.Errorf("profile store init failed: %w", err)
	}
	if profile.Empty() {
		log.Printf("profile store is empty, answers will carry no profile knowledge")
	}

	client, err := llm.NewClient(ctx, llm.Config{
		Mode:         cfg.LLMMode,
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		ChatModel:    cfg.ChatModel,
		PlannerModel: cfg.PlannerModel,
		EmbedModel:   cfg.EmbedModel,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client init failed: %w", err)
	}

	var searcher vectordb.Searcher
	if strings.TrimSpace(cfg.PineconeIndexHost) != "" {
		pc, err := vectordb.NewPineconeClient(cfg.PineconeIndexHost, cfg.PineconeAPIKey)
		if err != nil {
			return nil, fmt.Errorf("pinecone client init failed: %w", err)
		}
		searcher = pc
	} else {
		log.Printf("no vector index configured, retrieval disabled")
	}

	tracer := trace.New(cfg.LangfuseHost, cfg.LangfusePublicKey, cfg.LangfuseSecretKey)

	orchestrator := chat.NewOrchestrator(
		sessions,
		profile,
		client,
		gate.NewGate(client, cfg.PlannerModel),
		planner.NewRewriter(client, cfg.PlannerModel),
		planner.NewPlanner(client, cfg.PlannerModel),
		retrieval.NewAdapter(client, searcher, cfg.RetrievalTopK),
		compose.NewAssembler(cfg.PersonaName, cfg.PersonaTagline, cfg.LinkStyle),
		tracer,
		metrics,
		chat.Options{
			ChatModel:    cfg.ChatModel,
			PlannerModel: cfg.PlannerModel,
			Temperature:  cfg.GenTemperature,
			MaxTokens:    cfg.GenMaxTokens,
			HistoryLimit: cfg.HistoryLimit,
			PersonaName:  cfg.PersonaName,
		},
	)

	api := httpapi.New(cfg, orchestrator, metrics)

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Metrics:      metrics,
	}, nil
}
