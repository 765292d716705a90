package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultD1BaseURL is the Cloudflare API root the query endpoint hangs off
const DefaultD1BaseURL = "https://api.cloudflare.com/client/v4"

// D1Client submits SQL to a D1 database through the HTTP query endpoint
type D1Client struct {
	Endpoint string
	Token    string
	Client   *http.Client
}

// d1QueryRequest is the body of a query request
type d1QueryRequest struct {
	SQL string `json:"sql"`
}

// d1Response is the Cloudflare API envelope around query results
type d1Response struct {
	Success  bool              `json:"success"`
	Errors   []APIMessage      `json:"errors"`
	Messages []APIMessage      `json:"messages"`
	Result   []json.RawMessage `json:"result"`
}

// D1Endpoint builds the query URL for an account and database
func D1Endpoint(baseURL, accountID, databaseID string) string {
	return fmt.Sprintf("%s/accounts/%s/d1/database/%s/query",
		strings.TrimRight(baseURL, "/"), url.PathEscape(accountID), url.PathEscape(databaseID))
}

// NewD1Client creates a client for the database's query endpoint
func NewD1Client(cfg D1Config, timeout time.Duration) *D1Client {
	return &D1Client{
		Endpoint: D1Endpoint(cfg.BaseURL, cfg.AccountID, cfg.DatabaseID),
		Token:    cfg.APIToken,
		Client:   &http.Client{Timeout: timeout},
	}
}

// Execute posts sql as one query and checks the success flag of the response.
// A success=false envelope is returned as *APIError.
func (c *D1Client) Execute(ctx context.Context, sql string) error {
	body, err := json.Marshal(d1QueryRequest{SQL: sql})
	if err != nil {
		return fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response (HTTP %d): %w", resp.StatusCode, err)
	}

	var result d1Response
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decoding response (HTTP %d): %w; body: %q", resp.StatusCode, err, snippet(string(raw)))
	}
	if !result.Success {
		return &APIError{StatusCode: resp.StatusCode, Errors: result.Errors}
	}
	return nil
}
