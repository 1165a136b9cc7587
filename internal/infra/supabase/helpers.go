package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE
// ============================================================

func (c *Client) doPost(ctx context.Context, service, path string, data any) (*response, error) {
	return c.execute(ctx, service, func(ctx context.Context) (*response, error) {
		return c.doRequest(ctx, http.MethodPost, path, data)
	})
}

func (c *Client) doPatch(ctx context.Context, service, path string, data map[string]any) (*response, error) {
	return c.execute(ctx, service, func(ctx context.Context) (*response, error) {
		return c.doRequest(ctx, http.MethodPatch, path, data)
	})
}

func (c *Client) doDelete(ctx context.Context, service, path string) (*response, error) {
	return c.execute(ctx, service, func(ctx context.Context) (*response, error) {
		return c.doRequest(ctx, http.MethodDelete, path, nil)
	})
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ============================================================
// Response mapping
// ============================================================

type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusError maps a 4xx PostgREST answer to a domain error.
func statusError(service string, resp *response) error {
	if resp.status >= 200 && resp.status < 300 {
		return nil
	}

	var pgErr postgrestError
	_ = json.Unmarshal(resp.body, &pgErr)
	if resp.status == http.StatusConflict || pgErr.Code == "23505" {
		return &domain.ErrConflict{Message: service + ": resource already exists"}
	}
	return &domain.ErrExternalService{
		Service: "supabase/" + service,
		Err:     fmt.Errorf("status %d: %s", resp.status, string(resp.body)),
	}
}

func decodeRows(service string, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("[]")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ErrExternalService{Service: "supabase/" + service, Err: fmt.Errorf("decode %s: %w", service, err)}
	}
	return nil
}

// ============================================================
// PostgREST filter encoding
// ============================================================

// quote wraps v in double quotes so reserved characters (, . : ( ))
// survive inside in.(), ov.{} and or=() filters.
func quote(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ",")
}

// inFilter renders a PostgREST "in" filter value: in.("a","b").
func inFilter(values []string) string {
	return "in.(" + quoteAll(values) + ")"
}

// overlapFilter renders an array-overlap filter value: ov.{"a","b"}.
func overlapFilter(values []string) string {
	return "ov.{" + quoteAll(values) + "}"
}

func withQuery(table string, q url.Values) string {
	return table + "?" + q.Encode()
}

func eq(v string) string {
	return "eq." + v
}
