package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the advisor.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	turnsTotal      *prometheus.CounterVec
	interestLevels  *prometheus.CounterVec
	leadsTotal      *prometheus.CounterVec
	aiFallbacks     *prometheus.CounterVec
	aiAttempts      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "advisor_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_chat_turns_total",
				Help: "Chat turns handled, by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		interestLevels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_interest_level_total",
				Help: "Interest level assigned to question turns.",
			},
			[]string{"level"},
		),
		leadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_leads_total",
				Help: "Lead lifecycle transitions.",
			},
			[]string{"event"},
		),
		aiFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_ai_fallbacks_total",
				Help: "AI-assisted paths that fell back to deterministic rules.",
			},
			[]string{"component"},
		),
		aiAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_ai_attempts_total",
				Help: "AI-assisted path attempts.",
			},
			[]string{"component"},
		),
	}
}

// Metric label values.
const (
	LeadEventCreated   = "created"
	LeadEventCompleted = "completed"
	LeadEventLinked    = "linked"

	ComponentInterest = "interest_analyzer"
	ComponentContact  = "contact_extractor"
)

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrTurn counts a chat turn.
func (m *Metrics) IncrTurn(kind, status string) {
	m.turnsTotal.WithLabelValues(kind, status).Inc()
}

// IncrInterestLevel counts the interest level of a question turn.
func (m *Metrics) IncrInterestLevel(level string) {
	m.interestLevels.WithLabelValues(level).Inc()
}

// IncrLead counts a lead lifecycle event.
func (m *Metrics) IncrLead(event string) {
	m.leadsTotal.WithLabelValues(event).Inc()
}

// IncrAIAttempt counts an AI-assisted attempt for component.
func (m *Metrics) IncrAIAttempt(component string) {
	m.aiAttempts.WithLabelValues(component).Inc()
}

// IncrAIFallback counts a fallback to the deterministic path for component.
func (m *Metrics) IncrAIFallback(component string) {
	m.aiFallbacks.WithLabelValues(component).Inc()
}

// GetLeadSnapshot returns a snapshot suitable for GET /v1/metrics/leads.
func (m *Metrics) GetLeadSnapshot() *domain.LeadMetrics {
	// Prometheus counters expose cumulative values.
	questionTurns := getCounterValue(m.turnsTotal, "NEW_QUESTION", "success") +
		getCounterValue(m.turnsTotal, "NEW_QUESTION", "error")
	contactTurns := getCounterValue(m.turnsTotal, "CONTACT_REPLY", "success") +
		getCounterValue(m.turnsTotal, "CONTACT_REPLY", "error")
	created := getCounterValue(m.leadsTotal, LeadEventCreated)
	completed := getCounterValue(m.leadsTotal, LeadEventCompleted)
	attempts := getCounterValue(m.aiAttempts, ComponentInterest) + getCounterValue(m.aiAttempts, ComponentContact)
	fallbacks := getCounterValue(m.aiFallbacks, ComponentInterest) + getCounterValue(m.aiFallbacks, ComponentContact)
	cacheHits := getCounterValue(m.cacheHits, "product_context")
	cacheMisses := getCounterValue(m.cacheMisses, "product_context")

	captureRate := float64(0)
	fallbackRate := float64(0)
	cacheHitRate := float64(0)
	if questionTurns > 0 {
		captureRate = created / questionTurns
	}
	if attempts > 0 {
		fallbackRate = fallbacks / attempts
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.LeadMetrics{
		TotalTurns:          int64(questionTurns + contactTurns),
		QuestionTurns:       int64(questionTurns),
		ContactReplyTurns:   int64(contactTurns),
		LeadsCreated:        int64(created),
		LeadsCompleted:      int64(completed),
		CaptureRate:         captureRate,
		AIFallbackRate:      fallbackRate,
		CacheHitRate:        cacheHitRate,
		HighInterestTurns:   int64(getCounterValue(m.interestLevels, "high")),
		MediumInterestTurns: int64(getCounterValue(m.interestLevels, "medium")),
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
