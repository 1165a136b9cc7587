package leadcapture

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

const opContactExtraction = "contact_extraction"

var phoneCleaner = regexp.MustCompile(`[^\d+]`)

// Extractor is the contact-extraction contract used by the chat turn.
type Extractor interface {
	ExtractContactInfo(ctx context.Context, text string) domain.ContactExtractionResult
}

// RegexExtractor adapts ContactExtractor to Extractor.
type RegexExtractor struct {
	*ContactExtractor
}

// ExtractContactInfo runs the deterministic extraction.
func (r RegexExtractor) ExtractContactInfo(_ context.Context, text string) domain.ContactExtractionResult {
	return r.ContactExtractor.ExtractContactInfo(text)
}

// LLMContactExtractor asks the model for the contact fields and validates
// them. Any failure returns the regex result instead.
type LLMContactExtractor struct {
	regex   *ContactExtractor
	ai      Generator
	metrics AIMetrics
	logger  *zap.Logger
}

// NewLLMContactExtractor creates the AI-backed extractor. metrics may be nil.
func NewLLMContactExtractor(regex *ContactExtractor, ai Generator, metrics AIMetrics, logger *zap.Logger) *LLMContactExtractor {
	return &LLMContactExtractor{regex: regex, ai: ai, metrics: metrics, logger: logger}
}

// ExtractContactInfo implements Extractor.
func (l *LLMContactExtractor) ExtractContactInfo(ctx context.Context, text string) domain.ContactExtractionResult {
	ctx, span := tracer.Start(ctx, "LLMContactExtractor.ExtractContactInfo")
	defer span.End()

	if l.metrics != nil {
		l.metrics.IncrAIAttempt(metricContact)
	}
	res, err := l.extractWithAI(ctx, text)
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncrAIFallback(metricContact)
		}
		l.logger.Warn("AI contact extraction failed, using regex", zap.Error(err))
		return l.regex.ExtractContactInfo(text)
	}
	return res
}

type contactPayload struct {
	Name  *string      `json:"name"`
	Email *string      `json:"email"`
	Phone *string      `json:"phone"`
	Age   *json.Number `json:"age"`
}

func (l *LLMContactExtractor) extractWithAI(ctx context.Context, text string) (domain.ContactExtractionResult, error) {
	raw, err := l.ai.Generate(ctx, contactPrompt(text))
	if err != nil {
		return domain.ContactExtractionResult{}, err
	}

	var p contactPayload
	if err := decodeJSONObject(opContactExtraction, raw, &p); err != nil {
		return domain.ContactExtractionResult{}, err
	}
	return l.validate(p), nil
}

// validate keeps only plausible values: a well-formed email, a phone with
// enough digits, an age in [16,99] and a non-empty name.
func (l *LLMContactExtractor) validate(p contactPayload) domain.ContactExtractionResult {
	res := domain.ContactExtractionResult{ExtractionMethod: domain.ExtractionAI}

	if p.Name != nil {
		if name := TitleCaseName(*p.Name); name != "" && !isNullish(name) {
			res.Name = &name
		}
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		if m := l.regex.email.FindString(email); m != "" && m == email {
			res.Email = &email
		}
	}
	if p.Phone != nil {
		phone := phoneCleaner.ReplaceAllString(*p.Phone, "")
		if countDigits(phone) >= l.regex.minDigits {
			res.Phone = &phone
		}
	}
	if p.Age != nil {
		if age, err := p.Age.Int64(); err == nil && age >= 16 && age <= 99 {
			a := int(age)
			res.Age = &a
		}
	}

	res.Confidence = ConfidenceOf(res.Name != nil, res.Email != nil, res.Phone != nil)
	return res
}

func isNullish(s string) bool {
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return true
	}
	return false
}

func contactPrompt(text string) string {
	return fmt.Sprintf(`Extract the contact information from this customer message.

Message: %q

Return only a JSON object: {"name": string or null, "email": string or null, "phone": string or null, "age": integer or null}.
Use null for anything the message does not state. Do not invent values.`, text)
}
