package domain

// ============================================================
// Per-turn analysis records (never persisted on their own)
// ============================================================

// Confidence is the qualitative completeness of extracted contact data.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// AtLeastMedium reports whether c is medium or high.
func (c Confidence) AtLeastMedium() bool {
	return c == ConfidenceMedium || c == ConfidenceHigh
}

// ExtractionMethod records which extraction path produced a result.
type ExtractionMethod string

const (
	ExtractionRegex ExtractionMethod = "regex"
	ExtractionAI    ExtractionMethod = "ai"
)

// ContactExtractionResult is the best-effort contact data found in one utterance.
// Absent fields are nil, never empty strings.
type ContactExtractionResult struct {
	Name             *string          `json:"name"`
	Email            *string          `json:"email"`
	Phone            *string          `json:"phone"`
	Age              *int             `json:"age"`
	Confidence       Confidence       `json:"confidence"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// NameValue returns the name or "".
func (r *ContactExtractionResult) NameValue() string { return deref(r.Name) }

// EmailValue returns the email or "".
func (r *ContactExtractionResult) EmailValue() string { return deref(r.Email) }

// PhoneValue returns the phone or "".
func (r *ContactExtractionResult) PhoneValue() string { return deref(r.Phone) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// InterestLevel buckets the interest score.
type InterestLevel string

const (
	InterestLow    InterestLevel = "low"
	InterestMedium InterestLevel = "medium"
	InterestHigh   InterestLevel = "high"
)

// AIKeywordSet is the keyword expansion proposed by the model for one turn.
type AIKeywordSet struct {
	HighInterestKeywords   []string   `json:"high_interest_keywords"`
	PurchaseIntentKeywords []string   `json:"purchase_intent_keywords"`
	UrgencyIndicators      []string   `json:"urgency_indicators"`
	InterestScore          int        `json:"interest_score"`
	ConfidenceLevel        Confidence `json:"confidence_level"`
	Reasoning              string     `json:"reasoning"`
}

// AIAnalysis describes how much the model contributed to the score.
type AIAnalysis struct {
	ConfidenceLevel   Confidence    `json:"confidence_level"`
	Reasoning         string        `json:"reasoning"`
	GeneratedKeywords *AIKeywordSet `json:"generated_keywords,omitempty"`
}

// InterestAnalysisResult is the scored purchase intent of a turn.
// InterestReasons keeps the rule evaluation order.
type InterestAnalysisResult struct {
	InterestScore       int           `json:"interest_score"`
	InterestLevel       InterestLevel `json:"interest_level"`
	ShouldCaptureLead   bool          `json:"should_capture_lead"`
	InterestReasons     []string      `json:"interest_reasons"`
	RecommendedProducts []string      `json:"recommended_products"`
	AIAnalysis          AIAnalysis    `json:"ai_analysis"`
}
