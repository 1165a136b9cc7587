package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Persistence
	StoreBackend       string
	DatabaseURL        string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Language model
	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMTimeout    time.Duration

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Lead capture
	KeywordsFile          string
	ContactExtractionMode string // regex | ai
	InterestAIEnabled     bool

	// Lead events
	AMQPURL            string
	LeadEventsExchange string

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:    getEnvDuration("LLM_TIMEOUT", 30*time.Second),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		KeywordsFile:          getEnv("KEYWORDS_FILE", ""),
		ContactExtractionMode: strings.ToLower(getEnv("CONTACT_EXTRACTION_MODE", "regex")),
		InterestAIEnabled:     getEnvBool("INTEREST_AI_ENABLED", true),

		AMQPURL:            getEnv("AMQP_URL", ""),
		LeadEventsExchange: getEnv("LEAD_EVENTS_EXCHANGE", "leads"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreSupabase:
		if c.SupabaseURL == "" || (c.SupabaseServiceKey == "" && c.SupabaseAnonKey == "") {
			return fmt.Errorf("config: STORE_BACKEND=supabase requires SUPABASE_URL and a key")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: STORE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.ContactExtractionMode != "regex" && c.ContactExtractionMode != "ai" {
		return fmt.Errorf("config: CONTACT_EXTRACTION_MODE must be regex or ai")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
