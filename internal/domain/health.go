package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// LeadMetrics is returned by GET /v1/metrics/leads.
type LeadMetrics struct {
	TotalTurns          int64   `json:"totalTurns"`
	QuestionTurns       int64   `json:"questionTurns"`
	ContactReplyTurns   int64   `json:"contactReplyTurns"`
	LeadsCreated        int64   `json:"leadsCreated"`
	LeadsCompleted      int64   `json:"leadsCompleted"`
	CaptureRate         float64 `json:"captureRate"`
	AIFallbackRate      float64 `json:"aiFallbackRate"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	HighInterestTurns   int64   `json:"highInterestTurns"`
	MediumInterestTurns int64   `json:"mediumInterestTurns"`
	Period              string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// SuccessResponse acknowledges a write that has no body of its own.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
