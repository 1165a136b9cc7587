package leadcapture_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/leadcapture"
)

func TestDefaultKeywords(t *testing.T) {
	k, err := leadcapture.DefaultKeywords()
	if err != nil {
		t.Fatalf("DefaultKeywords: %v", err)
	}
	if k.Thresholds != (leadcapture.Thresholds{High: 8, Medium: 5, Low: 3}) {
		t.Errorf("unexpected thresholds %+v", k.Thresholds)
	}
	if len(k.Contact.PhonePatterns) != 8 {
		t.Errorf("expected 8 phone patterns, got %d", len(k.Contact.PhonePatterns))
	}
	for _, kw := range k.SeriousInterest.Keywords {
		if strings.Contains(kw, "retrait") && kw != "retrait" {
			t.Errorf("keyword %q should be split", kw)
		}
	}
}

func TestThresholds_Level(t *testing.T) {
	th := leadcapture.Thresholds{High: 8, Medium: 5, Low: 3}

	tests := []struct {
		score   int
		level   domain.InterestLevel
		capture bool
	}{
		{0, domain.InterestLow, false},
		{2, domain.InterestLow, false},
		{3, domain.InterestLow, false},
		{4, domain.InterestLow, false},
		{5, domain.InterestMedium, true},
		{7, domain.InterestMedium, true},
		{8, domain.InterestHigh, true},
		{20, domain.InterestHigh, true},
	}
	for _, tt := range tests {
		level, capture := th.Level(tt.score)
		if level != tt.level || capture != tt.capture {
			t.Errorf("Level(%d) = %s/%v, want %s/%v", tt.score, level, capture, tt.level, tt.capture)
		}
	}
}

const minimalKeywords = `
thresholds: {high: 6, medium: 4, low: 2}
weights: {high_interest: 2, purchase_intent: 3, urgency: 3, products_recommended: 2, question_mark: 1}
high_interest: [PRICE]
purchase_intent: [i want]
urgency: [now]
serious_interest:
  min_keywords: 1
  keywords: [buy]
  phrases: []
contact:
  min_phone_digits: 8
  email_pattern: '\S+@\S+'
  age_pattern: '\b\d{2}\b'
  phone_patterns: ['\d{8,}']
  name_prefixes: ['name:\s*']
  keywords: ['@']
  missing_labels: {name: name, email: email, phone: phone}
`

func TestLoadKeywords_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	if err := os.WriteFile(path, []byte(minimalKeywords), 0o600); err != nil {
		t.Fatal(err)
	}

	k, err := leadcapture.LoadKeywords(path)
	if err != nil {
		t.Fatalf("LoadKeywords: %v", err)
	}
	if k.HighInterest[0] != "price" {
		t.Errorf("expected keywords lower-cased, got %v", k.HighInterest)
	}

	e, err := leadcapture.NewContactExtractor(k)
	if err != nil {
		t.Fatal(err)
	}
	res := e.ExtractContactInfo("name: ada lovelace")
	if deref(res.Name) != "Ada Lovelace" {
		t.Errorf("expected custom name prefix to apply, got %s", deref(res.Name))
	}
}

func TestLoadKeywords_EmptyPathUsesDefaults(t *testing.T) {
	k, err := leadcapture.LoadKeywords("")
	if err != nil {
		t.Fatal(err)
	}
	if k.Thresholds.High != 8 {
		t.Errorf("expected default thresholds")
	}
}

func TestParseKeywords_Invalid(t *testing.T) {
	tests := map[string]string{
		"unordered thresholds": strings.Replace(minimalKeywords, "{high: 6, medium: 4, low: 2}", "{high: 4, medium: 6, low: 2}", 1),
		"bad phone pattern":    strings.Replace(minimalKeywords, `['\d{8,}']`, `['(\d']`, 1),
		"no phone patterns":    strings.Replace(minimalKeywords, `['\d{8,}']`, `[]`, 1),
		"bad name prefix":      strings.Replace(minimalKeywords, `['name:\s*']`, `['[name']`, 1),
		"zero serious min":     strings.Replace(minimalKeywords, "min_keywords: 1", "min_keywords: 0", 1),
		"not yaml":             "thresholds: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := leadcapture.ParseKeywords([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
