package leadcapture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// namePattern captures a name after an introduction phrase.
const namePattern = `([a-zA-ZÀ-ÿ\s]+)`

// ContactExtractor pulls name, email, phone and age out of free text with
// layered regular expressions. It never fails on malformed input.
type ContactExtractor struct {
	email         *regexp.Regexp
	age           *regexp.Regexp
	phones        []*regexp.Regexp
	names         []*regexp.Regexp
	keywords      []string
	minDigits     int
	missingLabels MissingLabels
}

// NewContactExtractor compiles the contact rules of k.
func NewContactExtractor(k *Keywords) (*ContactExtractor, error) {
	c := k.Contact
	e := &ContactExtractor{
		keywords:      c.Keywords,
		minDigits:     c.MinPhoneDigits,
		missingLabels: c.MissingLabels,
	}

	var err error
	if e.email, err = regexp.Compile(c.EmailPattern); err != nil {
		return nil, fmt.Errorf("email pattern: %w", err)
	}
	if e.age, err = regexp.Compile(c.AgePattern); err != nil {
		return nil, fmt.Errorf("age pattern: %w", err)
	}
	for _, p := range c.PhonePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("phone pattern %q: %w", p, err)
		}
		e.phones = append(e.phones, re)
	}
	for _, p := range c.NamePrefixes {
		re, err := regexp.Compile(p + namePattern)
		if err != nil {
			return nil, fmt.Errorf("name prefix %q: %w", p, err)
		}
		e.names = append(e.names, re)
	}
	return e, nil
}

// IsContactInfoResponse reports whether text looks like someone giving
// their contact details: an email, a phone number or a contact keyword.
func (e *ContactExtractor) IsContactInfoResponse(text string) bool {
	if e.email.MatchString(text) {
		return true
	}
	if e.findPhone(text) != "" {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// HasEmailOrPhone reports whether text already carries a reachable contact.
func (e *ContactExtractor) HasEmailOrPhone(text string) bool {
	return e.email.MatchString(text) || e.findPhone(text) != ""
}

// ExtractContactInfo returns the best-effort contact data found in text.
func (e *ContactExtractor) ExtractContactInfo(text string) domain.ContactExtractionResult {
	res := domain.ContactExtractionResult{ExtractionMethod: domain.ExtractionRegex}

	if phone := e.findPhone(text); phone != "" {
		res.Phone = &phone
	}

	if m := e.age.FindString(text); m != "" {
		if age, err := strconv.Atoi(strings.TrimSpace(m)); err == nil && age >= 16 && age <= 99 {
			res.Age = &age
		}
	}

	lower := strings.ToLower(text)
	for _, re := range e.names {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if name := TitleCaseName(m[1]); name != "" {
			res.Name = &name
			break
		}
	}

	if email := e.email.FindString(text); email != "" {
		res.Email = &email
	}

	res.Confidence = ConfidenceOf(res.Name != nil, res.Email != nil, res.Phone != nil)
	return res
}

// ConfidenceOf is high with all three fields, medium with two, low otherwise.
func ConfidenceOf(hasName, hasEmail, hasPhone bool) domain.Confidence {
	n := 0
	for _, ok := range []bool{hasName, hasEmail, hasPhone} {
		if ok {
			n++
		}
	}
	switch {
	case n == 3:
		return domain.ConfidenceHigh
	case n == 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// GenerateFollowUpMessage asks for whichever of name, email and phone is
// still missing, or confirms receipt when nothing is.
func (e *ContactExtractor) GenerateFollowUpMessage(r domain.ContactExtractionResult) string {
	var missing []string
	if r.Name == nil {
		missing = append(missing, e.missingLabels.Name)
	}
	if r.Email == nil {
		missing = append(missing, e.missingLabels.Email)
	}
	if r.Phone == nil {
		missing = append(missing, e.missingLabels.Phone)
	}
	return followUpMessage(missing)
}

// findPhone returns the first candidate with enough digits, trying each
// pattern in order.
func (e *ContactExtractor) findPhone(text string) string {
	for _, re := range e.phones {
		for _, m := range re.FindAllString(text, -1) {
			if countDigits(m) >= e.minDigits {
				return strings.TrimSpace(m)
			}
		}
	}
	return ""
}

// TitleCaseName collapses whitespace and title-cases each word.
func TitleCaseName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers keep state and are not shared between goroutines.
	return cases.Title(language.Und).String(s)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
