// Package supabase implements the advisor stores over Supabase PostgREST.
// The schema and SQL functions live in internal/infra/postgres/migrations.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
// It implements port.MessageStore, port.LeadStore and port.ProductStore.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client. When serviceRoleKey is empty the anon
// key is used as bearer token.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if serviceRoleKey == "" {
		serviceRoleKey = apiKey
	}
	if apiKey == "" {
		apiKey = serviceRoleKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// response is a completed PostgREST exchange. 4xx answers are returned as
// responses, not errors, so they neither retry nor trip the breaker.
type response struct {
	status int
	body   []byte
}

// doRequest executes an authenticated request to Supabase PostgREST.
// Transport failures and 5xx answers are errors.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) (*response, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body *bytes.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		body = bytes.NewReader(jsonBody)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode >= 500 {
		c.logger.Warn("supabase: server error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(data)),
		)
		return nil, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(data))
	}

	c.logger.Debug("supabase: request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return &response{status: resp.StatusCode, body: data}, nil
}

// execute runs send through the circuit breaker and the retry policy.
func (c *Client) execute(ctx context.Context, service string, send func(ctx context.Context) (*response, error)) (*response, error) {
	var out *response
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			r, err := send(ctx)
			if err != nil {
				return err
			}
			out = r
			return nil
		})
	})
	if err != nil {
		if resilience.IsBreakerOpen(err) {
			return nil, &domain.ErrCircuitOpen{Service: "supabase/" + service}
		}
		return nil, &domain.ErrExternalService{Service: "supabase/" + service, Err: err}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, service, path string) (*response, error) {
	return c.execute(ctx, service, func(ctx context.Context) (*response, error) {
		return c.doRequest(ctx, http.MethodGet, path, nil)
	})
}

// rows runs a GET and decodes the JSON array into out.
func (c *Client) rows(ctx context.Context, service, path string, out any) error {
	resp, err := c.get(ctx, service, path)
	if err != nil {
		return err
	}
	if err := statusError(service, resp); err != nil {
		return err
	}
	return decodeRows(service, resp.body, out)
}
