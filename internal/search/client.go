// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the Tavily API.
const (
	// DefaultTavilyURL is the endpoint for Tavily search requests.
	DefaultTavilyURL = "https://api.tavily.com/search"

	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 20 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit
)

// sharedHTTPClient is the pooled client for all Tavily requests.
// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// Error variables for common search errors.
var (
	// ErrNoAPIKey indicates a call was made with an empty API key.
	ErrNoAPIKey = errors.New("search API key not provided")

	// ErrAuthFailed indicates the search credential was rejected.
	ErrAuthFailed = errors.New("search authentication failed")

	// ErrRateLimited indicates the search credential hit its quota.
	ErrRateLimited = errors.New("search rate limited")

	// ErrBadRequest indicates the provider rejected the request shape.
	ErrBadRequest = errors.New("search request rejected")
)

// APIError represents an error response from the search provider.
type APIError struct {
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("Tavily error (HTTP %d): %s", e.Status, e.Message)
}

// IsKeyFailure reports whether an error should count against the credential
// that made the call. Malformed-request and context errors do not.
func IsKeyFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrBadRequest) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrAuthFailed) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests ||
			apiErr.Status == http.StatusUnauthorized ||
			apiErr.Status == http.StatusForbidden ||
			apiErr.Status >= 500
	}
	return true
}

// Request describes one search call.
type Request struct {
	Query      string
	Depth      Depth
	MaxResults int
}

// tavilyRequest is the wire shape of a Tavily search call. The credential
// travels in the body, not a header.
type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

// tavilyResponse is the wire shape of a Tavily search response.
type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Client is a low-level Tavily search client. A process-wide rate limiter
// smooths bursts across all credentials; per-key quota is the pool's job.
type Client struct {
	endpoint string
	limiter  *rate.Limiter
}

// NewClient creates a search client with defaults: at most five requests per
// second with a burst of two, which keeps refinement double-searches from
// stampeding the provider.
func NewClient() *Client {
	return &Client{
		endpoint: DefaultTavilyURL,
		limiter:  rate.NewLimiter(rate.Every(200*time.Millisecond), 2),
	}
}

// WithEndpoint sets a custom endpoint URL.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

// WithLimiter replaces the request rate limiter.
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.limiter = l
	return c
}

// Search performs one search call with the given key.
//
// The excluded social domains are passed to the provider; if the provider
// rejects the exclusion parameter the call is retried once without it and
// the exclusion is applied locally instead. Results come back deduped and
// with excluded hosts already dropped.
func (c *Client) Search(ctx context.Context, apiKey string, req Request) ([]Result, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if req.Depth == "" {
		req.Depth = DepthBasic
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	results, err := c.doSearch(ctx, apiKey, req, ExcludedDomains)
	if errors.Is(err, ErrBadRequest) {
		// Older API plans reject exclude_domains. Retry without it and
		// filter locally.
		log.Printf("search: provider rejected exclusion params, filtering locally")
		results, err = c.doSearch(ctx, apiKey, req, nil)
	}
	if err != nil {
		return nil, err
	}

	results = FilterExcluded(results)
	results = Dedup(results)
	if len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	return results, nil
}

// doSearch performs a single HTTP request against the provider.
func (c *Client) doSearch(ctx context.Context, apiKey string, req Request, exclude []string) ([]Result, error) {
	body := tavilyRequest{
		APIKey:         apiKey,
		Query:          req.Query,
		SearchDepth:    string(req.Depth),
		MaxResults:     req.MaxResults,
		IncludeAnswer:  false,
		ExcludeDomains: exclude,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "hyperionx/0.1.0")

	start := time.Now()
	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("search: response %d (%v)", resp.StatusCode, time.Since(start))

	// SECURITY: Read response with size limit to prevent memory exhaustion.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, raw)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed.Results, nil
}

// handleErrorResponse converts HTTP error responses to appropriate Go errors.
func handleErrorResponse(statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrBadRequest, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return &APIError{Message: msg, Status: statusCode}
	}
}
