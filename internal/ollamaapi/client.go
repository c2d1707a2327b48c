// Package ollamaapi posts JSON requests to an Ollama server.
package ollamaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// Error is a failure reported by the server, either with a non-200 status
// or in the error field of a 200 reply.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != http.StatusOK {
		return fmt.Sprintf("ollama: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ollama: %s: %s", e.Endpoint, e.Message)
}

// Client sends requests to one server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the default server with the given request timeout.
func New(timeout time.Duration) *Client {
	return &Client{BaseURL: DefaultBaseURL, HTTPClient: &http.Client{Timeout: timeout}}
}

// SetBaseURL replaces the server address; empty keeps the current one.
func (c *Client) SetBaseURL(baseURL string) {
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		c.BaseURL = baseURL
	}
}

type failure struct {
	Error string `json:"error"`
}

// Post sends in as JSON to endpoint and decodes the reply into out.
func (c *Client) Post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ollama: %s: encode request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama: %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama: %s: read reply: %w", endpoint, err)
	}

	var f failure
	_ = json.Unmarshal(data, &f)
	if resp.StatusCode != http.StatusOK {
		msg := f.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}
	if f.Error != "" {
		return &Error{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: f.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ollama: %s: decode reply: %w", endpoint, err)
	}
	return nil
}
