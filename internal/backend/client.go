// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend is the HTTP client for the asynchronous paper-search
// service. It covers the full service contract: health probe, asynchronous
// search initiation, result materialization, search history, and cache
// administration. The search itself runs server-side; this client only
// correlates requests through backend-assigned search ids.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AutoJunjie/async-paper-retriever/internal/httputil"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

// ErrNotReady signals that the backend has not materialized a result yet.
// Polling callers treat it as a retry cause, not a failure.
var ErrNotReady = errors.New("search result not ready")

// Client talks to one backend service instance.
type Client struct {
	// BaseURL is the service root without a trailing slash. Tests point it
	// at an httptest server.
	BaseURL string

	HTTPClient *http.Client
	UserAgent  string
	MaxRetries int
}

// New builds a Client from configuration.
func New(cfg types.BackendConfig) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

// SearchRequest is the body of POST /search/async.
type SearchRequest struct {
	Query      string           `json:"query"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	SearchType types.SearchType `json:"searchType"`
	EnableLLM  bool             `json:"enableLlm"`
}

// SearchAccepted is the backend's acknowledgement of an asynchronous search.
type SearchAccepted struct {
	SearchID string `json:"search_id"`
	Message  string `json:"message"`
}

// ResultRecord is one raw document as the backend returns it. Fields are
// loosely populated; the orchestrator's mapping layer normalizes them.
type ResultRecord struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Keywords        []string `json:"keywords"`
	Abstract        string   `json:"abstract"`
	Score           float64  `json:"score"`
	Source          string   `json:"source"`
	MatchedKeywords []string `json:"matched_keywords"`
	RelevanceReason string   `json:"relevance_reason"`
}

// SearchPayload is the materialized result of a completed search, served
// from GET /cache/{search_id}.
type SearchPayload struct {
	Results        []ResultRecord `json:"results"`
	TotalResults   *int           `json:"total_results"`
	Total          *int           `json:"total"`
	SearchType     string         `json:"search_type"`
	RewrittenTerms []string       `json:"rewritten_terms"`
	SearchID       string         `json:"search_id"`

	// Error is set when the backend reports a genuine failure in-band.
	Error string `json:"error"`
}

// TotalCount returns the payload's result total, preferring total_results
// over total, falling back to the result list length.
func (p *SearchPayload) TotalCount() int {
	if p.TotalResults != nil {
		return *p.TotalResults
	}
	if p.Total != nil {
		return *p.Total
	}
	return len(p.Results)
}

// HistoryRecord is one entry of the search history feed.
type HistoryRecord struct {
	SearchID     string           `json:"search_id"`
	Query        string           `json:"query"`
	SearchType   types.SearchType `json:"search_type"`
	EnableLLM    bool             `json:"enable_llm"`
	TotalResults int              `json:"total_results"`
	ResultsCount int              `json:"results_count"`
	CreatedAt    int64            `json:"created_at"`
}

// historyResponse is the envelope of GET /search/history.
type historyResponse struct {
	History []HistoryRecord `json:"history"`
	Count   int             `json:"count"`
}

// Health probes GET /health. It returns nil iff the backend is reachable
// and answered 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health", nil)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// StartSearch initiates an asynchronous search via POST /search/async and
// returns the backend's search id for later polling.
func (c *Client) StartSearch(ctx context.Context, req SearchRequest) (SearchAccepted, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SearchAccepted{}, fmt.Errorf("encoding search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search/async", bytes.NewReader(body))
	if err != nil {
		return SearchAccepted{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, httpReq, c.MaxRetries)
	if err != nil {
		return SearchAccepted{}, fmt.Errorf("search initiation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SearchAccepted{}, fmt.Errorf("search initiation returned HTTP %d", resp.StatusCode)
	}

	var acc SearchAccepted
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return SearchAccepted{}, fmt.Errorf("parsing search initiation response: %w", err)
	}
	if acc.SearchID == "" {
		return SearchAccepted{}, fmt.Errorf("search initiation response missing search_id")
	}
	return acc, nil
}

// FetchResult requests the materialized payload for a search id via
// GET /cache/{search_id}. A 404 response maps to ErrNotReady; a payload
// carrying an error field is a genuine failure; a payload without a result
// list is malformed.
func (c *Client) FetchResult(ctx context.Context, searchID string) (*SearchPayload, error) {
	if searchID == "" {
		return nil, fmt.Errorf("search id is empty")
	}

	resp, err := c.get(ctx, "/cache/"+url.PathEscape(searchID), nil)
	if err != nil {
		return nil, fmt.Errorf("result fetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result fetch returned HTTP %d", resp.StatusCode)
	}

	var payload SearchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing result payload: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("backend reported failure: %s", payload.Error)
	}
	if payload.Results == nil {
		return nil, fmt.Errorf("result payload missing results field")
	}
	return &payload, nil
}

// History fetches up to limit records from GET /search/history.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryRecord, error) {
	params := url.Values{"limit": {fmt.Sprintf("%d", limit)}}

	resp, err := c.get(ctx, "/search/history", params)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history returned HTTP %d", resp.StatusCode)
	}

	var hr historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("parsing history response: %w", err)
	}
	return hr.History, nil
}

// CacheStats returns the backend's cache statistics as an opaque JSON
// document, passed through uninterpreted.
func (c *Client) CacheStats(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.get(ctx, "/cache/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("cache stats request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cache stats returned HTTP %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing cache stats: %w", err)
	}
	return raw, nil
}

// DeleteCached removes a materialized result from the backend's store via
// DELETE /cache/{search_id}.
func (c *Client) DeleteCached(ctx context.Context, searchID string) error {
	if searchID == "" {
		return fmt.Errorf("search id is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/cache/"+url.PathEscape(searchID), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("cache delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cache delete returned HTTP %d", resp.StatusCode)
	}

	var ack struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("parsing cache delete response: %w", err)
	}
	if ack.Error != "" {
		return fmt.Errorf("backend reported failure: %s", ack.Error)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	return httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
}
