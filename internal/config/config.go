// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the settings of the
// webhook server, the reply pipeline (dedup TTL, action claim TTL, generation
// retries, reply length), the Farcaster API client, the LLM backend, and
// observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the operator API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-cast-agent")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PipelineConfig holds the knobs of the mention/reply pipeline.
type PipelineConfig struct {
	AgentFID              int64         // AGENT_FID, the account the agent replies as
	AgentHandle           string        // AGENT_HANDLE, used in prompts and logs
	CacheTimeout          time.Duration // CACHE_TIMEOUT_MS, dedup TTL
	DedupMaxEntries       int           // DEDUP_MAX_ENTRIES, hard bound of the dedup cache
	ActionClaimTimeout    time.Duration // ACTION_CLAIM_TIMEOUT_MS
	MaxGenerationAttempts int           // MAX_GENERATION_ATTEMPTS
	MaxReplyLength        int           // MAX_REPLY_LENGTH (platform limit is 320)
	ConversationBudget    int           // CONVERSATION_BUDGET, characters of thread kept in prompts
}

// FarcasterConfig configures the Neynar-style Farcaster API client.
type FarcasterConfig struct {
	APIURL        string  // NEYNAR_API_URL
	APIKey        string  // NEYNAR_API_KEY
	SignerUUID    string  // NEYNAR_SIGNER_UUID
	WebhookSecret string  // NEYNAR_WEBHOOK_SECRET (empty disables signature checks)
	RPS           float64 // NEYNAR_RPS, outbound requests per second
	ReplyDepth    int     // REPLY_DEPTH, conversation depth requested from the API
	Timeout       time.Duration
}

// LLMConfig configures the text generation backend.
type LLMConfig struct {
	Provider    string // openai|ollama
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s, generation is synchronous
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for the operator API

	// App
	DBPath        string // SQLite path
	CharacterPath string // optional character JSON
	KnowledgePath string // optional knowledge markdown

	// Rate limiting (inbound webhook)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	Pipeline  PipelineConfig
	Farcaster FarcasterConfig
	LLM       LLMConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:        getenv("DB_PATH", "agent.db"),
		CharacterPath: getenv("CHARACTER_PATH", ""),
		KnowledgePath: getenv("KNOWLEDGE_PATH", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Pipeline: PipelineConfig{
			AgentFID:              getint64("AGENT_FID", 0),
			AgentHandle:           getenv("AGENT_HANDLE", ""),
			CacheTimeout:          getms("CACHE_TIMEOUT_MS", 60*time.Second),
			DedupMaxEntries:       getint("DEDUP_MAX_ENTRIES", 4096),
			ActionClaimTimeout:    getms("ACTION_CLAIM_TIMEOUT_MS", 5*time.Second),
			MaxGenerationAttempts: getint("MAX_GENERATION_ATTEMPTS", 3),
			MaxReplyLength:        getint("MAX_REPLY_LENGTH", 320),
			ConversationBudget:    getint("CONVERSATION_BUDGET", 1000),
		},

		Farcaster: FarcasterConfig{
			APIURL:        strings.TrimRight(getenv("NEYNAR_API_URL", "https://api.neynar.com"), "/"),
			APIKey:        getenv("NEYNAR_API_KEY", ""),
			SignerUUID:    getenv("NEYNAR_SIGNER_UUID", ""),
			WebhookSecret: getenv("NEYNAR_WEBHOOK_SECRET", ""),
			RPS:           getfloat("NEYNAR_RPS", 5.0),
			ReplyDepth:    getint("REPLY_DEPTH", 3),
			Timeout:       getdur("NEYNAR_TIMEOUT", 15*time.Second),
		},

		LLM: LLMConfig{
			Provider:    strings.ToLower(getenv("LLM_PROVIDER", "openai")),
			Model:       getenv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:      getenv("LLM_API_KEY", ""),
			BaseURL:     getenv("LLM_BASE_URL", ""),
			Temperature: getfloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getint("LLM_MAX_TOKENS", 512),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-cast-agent"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Pipeline.AgentHandle = strings.TrimPrefix(strings.TrimSpace(cfg.Pipeline.AgentHandle), "@")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if err := validatePipeline(cfg.Pipeline); err != nil {
		return cfg, err
	}
	if cfg.Farcaster.RPS <= 0 {
		return cfg, errors.New("NEYNAR_RPS must be > 0")
	}
	if cfg.Farcaster.ReplyDepth < 1 || cfg.Farcaster.ReplyDepth > 5 {
		return cfg, errors.New("REPLY_DEPTH must be between 1 and 5")
	}
	switch cfg.LLM.Provider {
	case "openai", "ollama":
	default:
		return cfg, errors.New("LLM_PROVIDER must be one of: openai, ollama")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return cfg, errors.New("LLM_TEMPERATURE must be in [0,2]")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func validatePipeline(p PipelineConfig) error {
	if p.AgentFID <= 0 {
		return errors.New("AGENT_FID must be > 0")
	}
	if p.CacheTimeout <= 0 {
		return errors.New("CACHE_TIMEOUT_MS must be > 0")
	}
	if p.DedupMaxEntries < 1 {
		return errors.New("DEDUP_MAX_ENTRIES must be >= 1")
	}
	if p.ActionClaimTimeout <= 0 {
		return errors.New("ACTION_CLAIM_TIMEOUT_MS must be > 0")
	}
	if p.MaxGenerationAttempts < 1 {
		return errors.New("MAX_GENERATION_ATTEMPTS must be >= 1")
	}
	if p.MaxReplyLength < 1 || p.MaxReplyLength > 320 {
		return errors.New("MAX_REPLY_LENGTH must be between 1 and 320")
	}
	if p.ConversationBudget < 0 {
		return errors.New("CONVERSATION_BUDGET must be >= 0")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getms reads an integer number of milliseconds (the *_MS options).
func getms(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return time.Duration(i) * time.Millisecond
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
