package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/app"
	"github.com/boddenberg/shop-advisor-go/internal/config"
	"github.com/boddenberg/shop-advisor-go/internal/handler"
	"github.com/boddenberg/shop-advisor-go/internal/infra/cache"
	"github.com/boddenberg/shop-advisor-go/internal/infra/llm"
	"github.com/boddenberg/shop-advisor-go/internal/infra/memory"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/infra/postgres"
	"github.com/boddenberg/shop-advisor-go/internal/infra/queue"
	"github.com/boddenberg/shop-advisor-go/internal/infra/resilience"
	"github.com/boddenberg/shop-advisor-go/internal/infra/supabase"
	"github.com/boddenberg/shop-advisor-go/internal/port"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "shop-advisor")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Duration("llm_timeout", cfg.LLMTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "shop-advisor")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Stores ---
	backends := app.Backends{}
	var closers []func()

	switch cfg.StoreBackend {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, int32(cfg.MaxConcurrency), logger)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		closers = append(closers, store.Close)
		backends.Messages, backends.Leads, backends.Products = store.Messages, store.Leads, store.Products
		backends.HealthChecks = append(backends.HealthChecks, handler.HealthCheck{
			Name:     "postgres",
			Critical: true,
			Check:    store.Ping,
		})

	case config.StoreSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff},
			logger,
		)
		backends.Messages, backends.Leads, backends.Products = client, client, client
		backends.HealthChecks = append(backends.HealthChecks, handler.HealthCheck{
			Name:     "supabase",
			Critical: true,
			Check:    func(ctx context.Context) error {
				_, err := client.ListProducts(ctx)
				return err
			},
		})

	default:
		logger.Warn("using in-memory stores, data is lost on restart")
		backends.Messages = memory.NewMessageStore()
		backends.Leads = memory.NewLeadStore()
		backends.Products = memory.NewProductStore()
	}

	// --- Cache ---
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		backends.ContextCache = cache.NewRedis[string](redisClient, "advisor:", cfg.CacheTTL, logger)
		backends.HealthChecks = append(backends.HealthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	} else {
		memCache := cache.New[string](cfg.CacheTTL)
		closers = append(closers, memCache.Close)
		backends.ContextCache = memCache
	}

	// --- Language model ---
	backends.Completer, err = newCompleter(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create language model client", zap.Error(err))
	}

	// --- Lead events ---
	var publisher port.LeadEventPublisher = queue.NoopPublisher{}
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitPublisher(cfg.AMQPURL, cfg.LeadEventsExchange, logger)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		publisher = rabbit
		backends.HealthChecks = append(backends.HealthChecks, handler.HealthCheck{
			Name:  "rabbitmq",
			Check: func(context.Context) error {
				if !rabbit.Healthy() {
					return errors.New("rabbitmq connection closed")
				}
				return nil
			},
		})
	} else {
		logger.Info("AMQP_URL not set, lead events are not published")
	}
	backends.Publisher = publisher

	// --- Services & router ---
	advisor, err := app.New(cfg, backends, metrics, logger)
	if err != nil {
		logger.Fatal("failed to wire application", zap.Error(err))
	}

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      advisor.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LLMTimeout*time.Duration(cfg.MaxRetries+1) + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	advisor.Close()
	if err := publisher.Close(); err != nil {
		logger.Warn("failed to close lead publisher", zap.Error(err))
	}
	if c, ok := backends.Completer.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	logger.Info("server stopped")
}

func newCompleter(ctx context.Context, cfg *config.Config) (port.Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return llm.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}
