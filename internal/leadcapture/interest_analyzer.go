package leadcapture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

var tracer = otel.Tracer("leadcapture")

// Generator is a one-shot, stateless text generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AIMetrics records how often AI-assisted paths run and fall back.
type AIMetrics interface {
	IncrAIAttempt(component string)
	IncrAIFallback(component string)
}

const (
	metricInterest = "interest_analyzer"
	metricContact  = "contact_extractor"

	opInterestKeywords = "interest_keywords"
	maxAIBaseScore     = 10
)

// InterestAnalyzer scores the purchase intent of a chat turn.
//
// With a Generator, the model proposes extra keywords and a base score that
// are merged into the rule-based score. Any failure of that call falls back
// to the deterministic rules, so AnalyzeInterestLevel always returns a result.
type InterestAnalyzer struct {
	kw       *Keywords
	contacts *ContactExtractor
	ai       Generator
	metrics  AIMetrics
	logger   *zap.Logger
}

// NewInterestAnalyzer creates an analyzer. ai and metrics may be nil.
func NewInterestAnalyzer(kw *Keywords, contacts *ContactExtractor, ai Generator, metrics AIMetrics, logger *zap.Logger) *InterestAnalyzer {
	return &InterestAnalyzer{kw: kw, contacts: contacts, ai: ai, metrics: metrics, logger: logger}
}

type reasonLabels struct {
	keyword, intent, urgency string
}

var (
	fallbackLabels = reasonLabels{keyword: "Keyword", intent: "Purchase intent", urgency: "Urgency"}
	aiLabels       = reasonLabels{keyword: "AI Keyword", intent: "AI Purchase Intent", urgency: "AI Urgency"}
)

// AnalyzeInterestLevel scores question (with the generated answer and the
// recommended product names) and decides whether to capture a lead.
func (a *InterestAnalyzer) AnalyzeInterestLevel(ctx context.Context, question, answer string, products []string) domain.InterestAnalysisResult {
	ctx, span := tracer.Start(ctx, "InterestAnalyzer.AnalyzeInterestLevel")
	defer span.End()

	if a.ai == nil {
		return a.AnalyzeDeterministic(question, products)
	}

	a.incrAttempt()
	res, err := a.analyzeWithAI(ctx, question, answer, products)
	if err != nil {
		a.incrFallback()
		a.logger.Warn("AI interest analysis failed, using fallback", zap.Error(err))
		span.SetAttributes(attribute.Bool("interest.fallback", true))
		return a.AnalyzeDeterministic(question, products)
	}
	span.SetAttributes(attribute.Int("interest.score", res.InterestScore))
	return res
}

// AnalyzeDeterministic scores question with the static keyword lists only.
func (a *InterestAnalyzer) AnalyzeDeterministic(question string, products []string) domain.InterestAnalysisResult {
	score, reasons := a.scoreKeywords(question, a.kw.HighInterest, a.kw.PurchaseIntent, a.kw.Urgency, fallbackLabels)
	score, reasons = a.scoreTurn(question, products, score, reasons)

	return a.result(score, reasons, products, domain.AIAnalysis{
		ConfidenceLevel: domain.ConfidenceLow,
		Reasoning:       "Using fallback analysis",
	})
}

// analyzeWithAI returns an error only when the model could not be reached.
// An unparseable answer is replaced by the static lists with low confidence.
func (a *InterestAnalyzer) analyzeWithAI(ctx context.Context, question, answer string, products []string) (domain.InterestAnalysisResult, error) {
	set, err := a.suggestKeywords(ctx, question, answer)
	if err != nil {
		var respErr *domain.ErrAIResponse
		if !errors.As(err, &respErr) {
			return domain.InterestAnalysisResult{}, err
		}
		a.incrFallback()
		a.logger.Info("AI keyword answer unusable, substituting base keywords", zap.Error(err))
		set = a.baseKeywordSet()
	}

	score, reasons := a.scoreKeywords(question, set.HighInterestKeywords, set.PurchaseIntentKeywords, set.UrgencyIndicators, aiLabels)
	if set.InterestScore > 0 {
		score += set.InterestScore
		reasons = append(reasons, fmt.Sprintf("AI Base Score: %d", set.InterestScore))
	}
	score, reasons = a.scoreTurn(question, products, score, reasons)

	return a.result(score, reasons, products, domain.AIAnalysis{
		ConfidenceLevel:   set.ConfidenceLevel,
		Reasoning:         set.Reasoning,
		GeneratedKeywords: set,
	}), nil
}

func (a *InterestAnalyzer) suggestKeywords(ctx context.Context, question, answer string) (*domain.AIKeywordSet, error) {
	raw, err := a.ai.Generate(ctx, interestPrompt(question, answer))
	if err != nil {
		return nil, err
	}
	return parseKeywordSet(raw)
}

func (a *InterestAnalyzer) baseKeywordSet() *domain.AIKeywordSet {
	return &domain.AIKeywordSet{
		HighInterestKeywords:   a.kw.HighInterest,
		PurchaseIntentKeywords: a.kw.PurchaseIntent,
		UrgencyIndicators:      a.kw.Urgency,
		ConfidenceLevel:        domain.ConfidenceLow,
		Reasoning:              "Using fallback keywords",
	}
}

func (a *InterestAnalyzer) scoreKeywords(question string, high, intent, urgency []string, labels reasonLabels) (int, []string) {
	q := strings.ToLower(question)
	w := a.kw.Weights
	score := 0
	reasons := []string{}

	for _, kw := range high {
		if matches(q, kw) {
			score += w.HighInterest
			reasons = append(reasons, labels.keyword+": "+kw)
		}
	}
	for _, kw := range intent {
		if matches(q, kw) {
			score += w.PurchaseIntent
			reasons = append(reasons, labels.intent+": "+kw)
		}
	}
	for _, kw := range urgency {
		if matches(q, kw) {
			score += w.Urgency
			reasons = append(reasons, labels.urgency+": "+kw)
		}
	}
	return score, reasons
}

func (a *InterestAnalyzer) scoreTurn(question string, products []string, score int, reasons []string) (int, []string) {
	w := a.kw.Weights
	if len(products) > 0 {
		score += w.ProductsRecommended
		reasons = append(reasons, fmt.Sprintf("Products recommended: %d", len(products)))
	}
	if strings.Contains(question, "?") {
		score += w.QuestionMark
		reasons = append(reasons, "Question asked")
	}
	return score, reasons
}

func (a *InterestAnalyzer) result(score int, reasons, products []string, ai domain.AIAnalysis) domain.InterestAnalysisResult {
	level, capture := a.kw.Thresholds.Level(score)
	recommended := make([]string, len(products))
	copy(recommended, products)
	return domain.InterestAnalysisResult{
		InterestScore:       score,
		InterestLevel:       level,
		ShouldCaptureLead:   capture,
		InterestReasons:     reasons,
		RecommendedProducts: recommended,
		AIAnalysis:          ai,
	}
}

// DetectSeriousInterest is a coarse detector independent of the score: true
// when enough purchase keywords appear, or any strong purchase phrase does.
func (a *InterestAnalyzer) DetectSeriousInterest(message string) bool {
	m := strings.ToLower(message)
	rules := a.kw.SeriousInterest

	for _, p := range rules.Phrases {
		if strings.Contains(m, p) {
			return true
		}
	}
	count := 0
	for _, kw := range rules.Keywords {
		if strings.Contains(m, kw) {
			count++
		}
	}
	return count >= rules.MinKeywords
}

// GenerateLeadCaptureMessage returns the prompt asking for contact details.
// It returns false when no lead should be captured, or when userMessage
// already carries an email or a phone number.
func (a *InterestAnalyzer) GenerateLeadCaptureMessage(analysis domain.InterestAnalysisResult, userMessage string) (string, bool) {
	if !analysis.ShouldCaptureLead {
		return "", false
	}
	if userMessage != "" && a.contacts.HasEmailOrPhone(userMessage) {
		return "", false
	}
	return leadCaptureMessage(analysis.InterestLevel, analysis.RecommendedProducts), true
}

func (a *InterestAnalyzer) incrAttempt() {
	if a.metrics != nil {
		a.metrics.IncrAIAttempt(metricInterest)
	}
}

func (a *InterestAnalyzer) incrFallback() {
	if a.metrics != nil {
		a.metrics.IncrAIFallback(metricInterest)
	}
}

func matches(lowerText, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	return kw != "" && strings.Contains(lowerText, kw)
}

func interestPrompt(question, answer string) string {
	return fmt.Sprintf(`Analyze this customer question and generate keywords that indicate purchase intent and interest level.

Customer Question: %q
Context: AI Answer: %s

Return only a JSON object with this structure:
{
  "high_interest_keywords": ["keyword1", "keyword2"],
  "purchase_intent_keywords": ["intent1", "intent2"],
  "urgency_indicators": ["urgent1", "urgent2"],
  "interest_score": 0,
  "confidence_level": "low",
  "reasoning": "why these keywords were chosen"
}

interest_score is an integer from 0 to 10. confidence_level is one of low, medium, high.
Focus on words that show buying intention, urgency, product interest, price sensitivity and comparison shopping.`, question, answer)
}

type keywordSetPayload struct {
	HighInterestKeywords   *[]string    `json:"high_interest_keywords"`
	PurchaseIntentKeywords *[]string    `json:"purchase_intent_keywords"`
	UrgencyIndicators      *[]string    `json:"urgency_indicators"`
	InterestScore          *json.Number `json:"interest_score"`
	ConfidenceLevel        string       `json:"confidence_level"`
	Reasoning              string       `json:"reasoning"`
}

// parseKeywordSet strictly decodes and validates the model's keyword answer.
func parseKeywordSet(raw string) (*domain.AIKeywordSet, error) {
	var p keywordSetPayload
	if err := decodeJSONObject(opInterestKeywords, raw, &p); err != nil {
		return nil, err
	}

	invalid := func(reason string) error {
		return &domain.ErrAIResponse{Operation: opInterestKeywords, Reason: reason}
	}
	if p.HighInterestKeywords == nil || p.PurchaseIntentKeywords == nil || p.UrgencyIndicators == nil {
		return nil, invalid("missing keyword lists")
	}
	if p.InterestScore == nil {
		return nil, invalid("missing interest_score")
	}
	f, err := p.InterestScore.Float64()
	if err != nil || math.IsNaN(f) || f < 0 || f > maxAIBaseScore {
		return nil, invalid("interest_score out of range")
	}

	confidence := domain.Confidence(strings.ToLower(strings.TrimSpace(p.ConfidenceLevel)))
	switch confidence {
	case domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh:
	case "":
		confidence = domain.ConfidenceLow
	default:
		return nil, invalid("unknown confidence_level " + p.ConfidenceLevel)
	}

	return &domain.AIKeywordSet{
		HighInterestKeywords:   cleanKeywords(*p.HighInterestKeywords),
		PurchaseIntentKeywords: cleanKeywords(*p.PurchaseIntentKeywords),
		UrgencyIndicators:      cleanKeywords(*p.UrgencyIndicators),
		InterestScore:          int(math.Round(f)),
		ConfidenceLevel:        confidence,
		Reasoning:              p.Reasoning,
	}, nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
