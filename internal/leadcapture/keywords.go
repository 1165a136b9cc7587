// Package leadcapture scores purchase intent and extracts contact details
// from chat messages. Rules come from an immutable Keywords value injected at
// construction; every type here is safe for concurrent use.
package leadcapture

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// Thresholds maps an interest score to a level.
// score >= High → high, score >= Medium → medium, otherwise low.
// Leads are captured from Medium upwards.
type Thresholds struct {
	High   int `yaml:"high"`
	Medium int `yaml:"medium"`
	Low    int `yaml:"low"`
}

// Level returns the interest level and whether a lead should be captured.
func (t Thresholds) Level(score int) (domain.InterestLevel, bool) {
	switch {
	case score >= t.High:
		return domain.InterestHigh, true
	case score >= t.Medium:
		return domain.InterestMedium, true
	default:
		return domain.InterestLow, false
	}
}

// Weights are the score increments of each rule.
type Weights struct {
	HighInterest        int `yaml:"high_interest"`
	PurchaseIntent      int `yaml:"purchase_intent"`
	Urgency             int `yaml:"urgency"`
	ProductsRecommended int `yaml:"products_recommended"`
	QuestionMark        int `yaml:"question_mark"`
}

// SeriousInterestRules drive DetectSeriousInterest.
type SeriousInterestRules struct {
	MinKeywords int      `yaml:"min_keywords"`
	Keywords    []string `yaml:"keywords"`
	Phrases     []string `yaml:"phrases"`
}

// MissingLabels name the contact fields in follow-up prompts.
type MissingLabels struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// ContactRules drive the regex contact extractor.
type ContactRules struct {
	MinPhoneDigits int           `yaml:"min_phone_digits"`
	EmailPattern   string        `yaml:"email_pattern"`
	AgePattern     string        `yaml:"age_pattern"`
	PhonePatterns  []string      `yaml:"phone_patterns"`
	NamePrefixes   []string      `yaml:"name_prefixes"`
	Keywords       []string      `yaml:"keywords"`
	MissingLabels  MissingLabels `yaml:"missing_labels"`
}

// Keywords is the complete lead-capture rule set.
type Keywords struct {
	Thresholds      Thresholds           `yaml:"thresholds"`
	Weights         Weights              `yaml:"weights"`
	HighInterest    []string             `yaml:"high_interest"`
	PurchaseIntent  []string             `yaml:"purchase_intent"`
	Urgency         []string             `yaml:"urgency"`
	SeriousInterest SeriousInterestRules `yaml:"serious_interest"`
	Contact         ContactRules         `yaml:"contact"`
}

// DefaultKeywords returns the embedded bilingual rule set.
func DefaultKeywords() (*Keywords, error) {
	return ParseKeywords(defaultKeywordsYAML)
}

// MustDefaultKeywords is DefaultKeywords for tests and wiring that cannot fail.
func MustDefaultKeywords() *Keywords {
	k, err := DefaultKeywords()
	if err != nil {
		panic(err)
	}
	return k
}

// LoadKeywords reads a rule set from path, or the embedded one when path is empty.
func LoadKeywords(path string) (*Keywords, error) {
	if path == "" {
		return DefaultKeywords()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	return ParseKeywords(data)
}

// ParseKeywords decodes and validates a YAML rule set. Keywords are
// lower-cased so matching is case-insensitive.
func ParseKeywords(data []byte) (*Keywords, error) {
	var k Keywords
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	k.normalize()
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return &k, nil
}

func (k *Keywords) normalize() {
	k.HighInterest = lowerAll(k.HighInterest)
	k.PurchaseIntent = lowerAll(k.PurchaseIntent)
	k.Urgency = lowerAll(k.Urgency)
	k.SeriousInterest.Keywords = lowerAll(k.SeriousInterest.Keywords)
	k.SeriousInterest.Phrases = lowerAll(k.SeriousInterest.Phrases)
	k.Contact.Keywords = lowerAll(k.Contact.Keywords)
}

// Validate checks that thresholds are ordered and every pattern compiles.
func (k *Keywords) Validate() error {
	t := k.Thresholds
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low >= 0) {
		return fmt.Errorf("keywords: thresholds must satisfy high > medium > low >= 0, got %d/%d/%d", t.High, t.Medium, t.Low)
	}
	if k.SeriousInterest.MinKeywords < 1 {
		return fmt.Errorf("keywords: serious_interest.min_keywords must be >= 1")
	}
	if k.Contact.MinPhoneDigits < 1 {
		return fmt.Errorf("keywords: contact.min_phone_digits must be >= 1")
	}
	if len(k.Contact.PhonePatterns) == 0 {
		return fmt.Errorf("keywords: contact.phone_patterns is empty")
	}
	patterns := append([]string{k.Contact.EmailPattern, k.Contact.AgePattern}, k.Contact.PhonePatterns...)
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("keywords: bad pattern %q: %w", p, err)
		}
	}
	for _, p := range k.Contact.NamePrefixes {
		if _, err := regexp.Compile(p + namePattern); err != nil {
			return fmt.Errorf("keywords: bad name prefix %q: %w", p, err)
		}
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
