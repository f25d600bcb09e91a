package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
)

// maxResponseSize caps the body read from the CMS (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client implements cms.ContentClient against a Strapi v5 REST API
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ cms.ContentClient = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient validates the config and builds a client
func NewClient(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = config.Timeout
	}
	return c, nil
}

// Config returns the validated configuration
func (c *Client) Config() Config {
	return c.config
}

// envelope is the response wrapper used by every CMS endpoint
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

type apiError struct {
	Status  int    `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Find queries a collection
func (c *Client) Find(ctx context.Context, collection string, opts cms.FindOptions) ([]cms.Entry, error) {
	env, err := c.do(ctx, http.MethodGet, "find", collection, collection, findParams(opts), nil)
	if err != nil {
		return nil, err
	}
	var entries []cms.Entry
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &entries); err != nil {
			return nil, c.invalidResponse(collection, "find", err)
		}
	}
	return entries, nil
}

// Create creates a new document
func (c *Client) Create(ctx context.Context, collection string, data map[string]any, opts cms.WriteOptions) (cms.Entry, error) {
	env, err := c.do(ctx, http.MethodPost, "create", collection, collection, writeParams(opts), data)
	if err != nil {
		return nil, err
	}
	return c.decodeEntry(env, collection, "create")
}

// Update replaces the given fields of an existing document
func (c *Client) Update(ctx context.Context, collection, documentID string, data map[string]any, opts cms.WriteOptions) (cms.Entry, error) {
	path := collection + "/" + url.PathEscape(documentID)
	env, err := c.do(ctx, http.MethodPut, "update", collection, path, writeParams(opts), data)
	if err != nil {
		return nil, err
	}
	return c.decodeEntry(env, collection, "update")
}

// Delete removes a document
func (c *Client) Delete(ctx context.Context, collection, documentID string) error {
	path := collection + "/" + url.PathEscape(documentID)
	_, err := c.do(ctx, http.MethodDelete, "delete", collection, path, nil, nil)
	return err
}

// GetSingleton reads a single-type document such as the header or footer
func (c *Client) GetSingleton(ctx context.Context, name string, opts cms.FindOptions) (cms.Entry, error) {
	env, err := c.do(ctx, http.MethodGet, "get", name, name, findParams(opts), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeEntry(env, name, "get")
}

// Ping verifies the API is reachable and the product content type exposes the
// fields the sync writes.
func (c *Client) Ping(ctx context.Context) error {
	key := c.config.SystemIDKey
	_, err := c.Find(ctx, cms.EntityProduct.Collection(), cms.FindOptions{
		Fields: []string{"title", key, "handle", "productType"},
		Populate: map[string]any{
			"variants": map[string]any{
				"fields": []string{"title", key, "sku"},
			},
		},
		Pagination: &cms.Pagination{Limit: 1},
	})
	return err
}

func (c *Client) decodeEntry(env *envelope, collection, op string) (cms.Entry, error) {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var entry cms.Entry
	if err := json.Unmarshal(env.Data, &entry); err != nil {
		return nil, c.invalidResponse(collection, op, err)
	}
	return entry, nil
}

func (c *Client) invalidResponse(collection, op string, err error) error {
	return &cms.RequestError{
		Collection: collection,
		Operation:  op,
		HTTPStatus: http.StatusOK,
		Message:    "invalid response payload: " + err.Error(),
	}
}

func (c *Client) do(ctx context.Context, method, op, collection, path string, params map[string]any, data map[string]any) (*envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &cms.UnavailableError{Op: op + " " + collection, Err: err}
		}
	}

	endpoint := c.config.BaseURL + "/" + strings.TrimLeft(path, "/")
	if q := encodeQuery(params); q != "" {
		endpoint += "?" + q
	}

	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(map[string]any{"data": data})
		if err != nil {
			return nil, fmt.Errorf("strapi: failed to encode %s payload: %w", collection, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("strapi: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("CMS request failed",
			zap.String("operation", op),
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil, &cms.UnavailableError{Op: op + " " + collection, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &cms.UnavailableError{Op: op + " " + collection, Err: err}
	}

	c.logger.Debug("CMS request",
		zap.String("method", method),
		zap.String("collection", collection),
		zap.Int("status", resp.StatusCode),
	)

	env := &envelope{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, env); err != nil && resp.StatusCode < 300 {
			return nil, c.invalidResponse(collection, op, err)
		}
	}

	if resp.StatusCode >= 300 || env.Error != nil {
		reqErr := &cms.RequestError{
			Collection: collection,
			Operation:  op,
			HTTPStatus: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
		if env.Error != nil {
			if env.Error.Message != "" {
				reqErr.Message = env.Error.Message
			}
			if resp.StatusCode < 300 && env.Error.Status != 0 {
				reqErr.HTTPStatus = env.Error.Status
			}
		} else if len(raw) > 0 && !json.Valid(raw) {
			reqErr.Message = truncate(string(raw), 256)
		}
		return nil, reqErr
	}
	return env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
