package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	chathandler "github.com/boddenberg/shop-advisor-go/internal/chat/handler"
	chatservice "github.com/boddenberg/shop-advisor-go/internal/chat/service"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services groups the application services exposed over HTTP.
type Services struct {
	Chat     *chatservice.ChatService
	Leads    *service.LeadService
	Messages *service.MessageService
	Products *service.ProductService
}

// Options tunes the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	// AskLimiter throttles POST /v1/ai/ask per client. Nil disables it.
	AskLimiter   *RateLimiter
	HealthChecks []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.HealthChecks, logger))
	r.Get("/readyz", readyzHandler(opts.HealthChecks))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Sales chat
		// POST /v1/ai/ask
		// =============================================
		r.Group(func(r chi.Router) {
			if opts.AskLimiter != nil {
				r.Use(opts.AskLimiter.Middleware)
			}
			r.Post("/ai/ask", chathandler.AskHandler(svcs.Chat, logger))
		})

		// =============================================
		// 2. Leads
		// =============================================
		r.Route("/leads", func(r chi.Router) {
			r.Post("/", createLeadHandler(svcs.Leads, logger))
			r.Get("/", listLeadsHandler(svcs.Leads, logger))
			r.Route("/{leadId}", func(r chi.Router) {
				r.Get("/", getLeadHandler(svcs.Leads, logger))
				r.Delete("/", deleteLeadHandler(svcs.Leads, logger))
				r.Put("/status", updateLeadStatusHandler(svcs.Leads, logger))
				r.Put("/contact", updateLeadContactHandler(svcs.Leads, logger))
				r.Get("/messages", leadMessagesHandler(svcs.Leads, logger))
				r.Post("/messages", linkLeadMessageHandler(svcs.Leads, logger))
				r.Get("/conversation", leadConversationHandler(svcs.Leads, logger))
				r.Get("/analytics", leadAnalyticsHandler(svcs.Leads, logger))
			})
		})

		// =============================================
		// 3. Messages
		// =============================================
		r.Route("/messages", func(r chi.Router) {
			r.Post("/", createMessageHandler(svcs.Messages, logger))
			r.Get("/", listMessagesHandler(svcs.Messages, logger))
			r.Get("/{messageId}", getMessageHandler(svcs.Messages, logger))
			r.Delete("/{messageId}", deleteMessageHandler(svcs.Messages, logger))
		})

		// =============================================
		// 4. Product catalog
		// =============================================
		r.Route("/products", func(r chi.Router) {
			r.Post("/", createProductHandler(svcs.Products, logger))
			r.Get("/", listProductsHandler(svcs.Products, logger))
			r.Get("/{productId}", getProductHandler(svcs.Products, logger))
			r.Put("/{productId}", updateProductHandler(svcs.Products, logger))
			r.Delete("/{productId}", deleteProductHandler(svcs.Products, logger))
		})

		// =============================================
		// 5. Metrics
		// GET /v1/metrics/leads
		// =============================================
		r.Get("/metrics/leads", leadMetricsHandler(metrics))
	})

	return r
}
