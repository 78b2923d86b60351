package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"fleda/internal/config"
)

// APIVersion is the dated API version all requests are pinned to.
const APIVersion = "2023-10-01"

// Perspective selects which document variants a query sees.
type Perspective string

const (
	PerspectivePublished     Perspective = "published"
	PerspectivePreviewDrafts Perspective = "previewDrafts"
)

// QueryOptions tune a single read.
type QueryOptions struct {
	// Token is sent as a bearer token when non-empty.
	Token       string
	Perspective Perspective
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Op         string // "query" or "mutate"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sanity %s failed (%d): %s", e.Op, e.StatusCode, e.Body)
}

// ErrMissingWriteToken is returned by Mutate when no write token is configured.
var ErrMissingWriteToken = errors.New("missing SANITY_API_WRITE_TOKEN for Sanity mutations")

// Client talks to the query and mutate endpoints of one dataset.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	dataset    string
	writeToken string
}

// NewClient creates a client for the dataset described by cfg.
// httpClient may be nil.
func NewClient(logger *slog.Logger, cfg config.Sanity, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	host := cfg.APIHost
	if host == "" {
		host = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	return &Client{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(host, "/") + "/v" + APIVersion,
		dataset:    cfg.Dataset,
		writeToken: cfg.WriteToken,
	}
}

// Query runs a GROQ query and decodes its result into out. Each params entry
// is bound to $name in the query.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, opts QueryOptions, out any) error {
	search := url.Values{}
	search.Set("query", query)
	if opts.Perspective != "" {
		search.Set("perspective", string(opts.Perspective))
	}
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode query parameter %s: %w", name, err)
		}
		search.Set("$"+name, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/data/query/%s?%s", c.baseURL, url.PathEscape(c.dataset), search.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build sanity query request: %w", err)
	}

	body, err := c.do(c.withToken(ctx, opts.Token), req, "query")
	if err != nil {
		return err
	}

	var payload struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("failed to decode sanity query response: %w", err)
	}
	if out == nil {
		return nil
	}
	if len(payload.Result) == 0 {
		payload.Result = json.RawMessage("null")
	}
	if err := json.Unmarshal(payload.Result, out); err != nil {
		return fmt.Errorf("failed to decode sanity query result: %w", err)
	}
	return nil
}

// Mutate submits one transaction. An empty slice is a no-op.
func (c *Client) Mutate(ctx context.Context, mutations []Mutation) (*MutateResult, error) {
	if len(mutations) == 0 {
		return &MutateResult{}, nil
	}
	if c.writeToken == "" {
		return nil, ErrMissingWriteToken
	}

	payload, err := json.Marshal(struct {
		Mutations []Mutation `json:"mutations"`
	}{mutations})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sanity mutations: %w", err)
	}

	endpoint := fmt.Sprintf("%s/data/mutate/%s?returnIds=true&returnDocuments=false", c.baseURL, url.PathEscape(c.dataset))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build sanity mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(c.withToken(ctx, c.writeToken), req, "mutate")
	if err != nil {
		return nil, err
	}

	var result MutateResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode sanity mutate response: %w", err)
	}
	c.logger.Debug("Sanity mutate succeeded", "mutations", len(mutations), "transactionId", result.TransactionID)
	return &result, nil
}

// withToken returns an HTTP client that adds token as a bearer header.
func (c *Client) withToken(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.httpClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

func (c *Client) do(hc *http.Client, req *http.Request, op string) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sanity %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sanity %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
