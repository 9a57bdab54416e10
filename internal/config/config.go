package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the profile chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SessionMaxIdle       time.Duration
	SessionSweepInterval time.Duration
	HistoryLimit         int

	LLMMode        string
	GeminiAPIKey   string
	GeminiBaseURL  string
	ChatModel      string
	PlannerModel   string
	EmbedModel     string
	GenTemperature float64
	GenMaxTokens   int

	PineconeAPIKey    string
	PineconeIndexHost string
	RetrievalTopK     int

	LangfuseHost      string
	LangfusePublicKey string
	LangfuseSecretKey string

	ProfileDataPath string
	DatabaseURL     string

	// LinkStyle selects how site links are injected into generated answers:
	// "marker" resolves <link> tags emitted by the model, "substring" wraps
	// exact label occurrences after generation.
	LinkStyle string

	PersonaName    string
	PersonaTagline string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "twinchat"),
		AllowAnyOrigin:   false,

		SessionMaxIdle:       24 * time.Hour,
		SessionSweepInterval: 10 * time.Minute,
		HistoryLimit:         10,

		LLMMode:        envOrDefault("LLM_MODE", "auto"),
		GeminiAPIKey:   trimmedEnv("GEMINI_API_KEY"),
		GeminiBaseURL:  envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ChatModel:      envOrDefault("GEMINI_CHAT_MODEL", "gemini-1.5-pro"),
		PlannerModel:   envOrDefault("GEMINI_PLANNER_MODEL", "gemini-1.5-flash"),
		EmbedModel:     envOrDefault("GEMINI_EMBED_MODEL", "gemini-embedding-001"),
		GenTemperature: 0.7,
		GenMaxTokens:   1024,

		PineconeAPIKey:    trimmedEnv("PINECONE_API_KEY"),
		PineconeIndexHost: trimmedEnv("PINECONE_INDEX_HOST"),
		RetrievalTopK:     5,

		LangfuseHost:      envOrDefault("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfusePublicKey: trimmedEnv("LANGFUSE_PUBLIC_KEY"),
		LangfuseSecretKey: trimmedEnv("LANGFUSE_SECRET_KEY"),

		ProfileDataPath: envOrDefault("PROFILE_DATA_PATH", "data/profile.json"),
		DatabaseURL:     trimmedEnv("DATABASE_URL"),

		LinkStyle: envOrDefault("LINK_STYLE", "marker"),

		PersonaName:    envOrDefault("PERSONA_NAME", "the site owner"),
		PersonaTagline: envOrDefault("PERSONA_TAGLINE", "a graduate researcher working on AI and human-computer interaction"),

		ShutdownTimeout: 15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionMaxIdle, err = durationFromEnv("APP_SESSION_MAX_IDLE", cfg.SessionMaxIdle)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionSweepInterval, err = durationFromEnv("APP_SESSION_SWEEP_INTERVAL", cfg.SessionSweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("APP_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTopK, err = intFromEnv("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionMaxIdle < time.Minute {
		return Config{}, fmt.Errorf("APP_SESSION_MAX_IDLE must be at least 1m")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_LIMIT must be positive")
	}
	if cfg.RetrievalTopK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.LinkStyle)) {
	case "marker", "substring":
		cfg.LinkStyle = strings.ToLower(strings.TrimSpace(cfg.LinkStyle))
	default:
		return Config{}, fmt.Errorf("LINK_STYLE must be marker or substring")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
