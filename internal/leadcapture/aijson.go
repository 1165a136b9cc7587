package leadcapture

import (
	"encoding/json"
	"strings"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// decodeJSONObject decodes the first JSON object in a model answer into v.
// Markdown code fences and leading prose are skipped; trailing text after the
// object is ignored.
func decodeJSONObject(operation, raw string, v any) error {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return &domain.ErrAIResponse{Operation: operation, Reason: "no JSON object in response"}
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &domain.ErrAIResponse{Operation: operation, Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}
