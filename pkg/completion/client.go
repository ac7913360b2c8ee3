// Package completion issues single chat-completion calls to an
// OpenAI-compatible provider.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pario-ai/tonal/pkg/config"
	"github.com/pario-ai/tonal/pkg/models"
)

// Params describes one completion call.
type Params struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is the trimmed text of the first choice plus usage data.
type Completion struct {
	Text  string
	Model string
	Usage models.Usage
}

// Completer submits a prompt and returns generated text or a classified error.
type Completer interface {
	Complete(ctx context.Context, p Params) (Completion, error)
}

// Client calls the /v1/chat/completions endpoint of a provider.
// It never retries.
type Client struct {
	cfg  config.ProviderConfig
	http *http.Client
}

// New creates a Client for the given provider.
func New(cfg config.ProviderConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{}}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Complete sends p as a single user message. Each call is bounded by the
// provider timeout; hitting it yields a ProviderError.
func (c *Client) Complete(ctx context.Context, p Params) (Completion, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	temp := p.Temperature
	maxTokens := p.MaxTokens
	body, err := json.Marshal(models.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []models.ChatMessage{{Role: "user", Content: p.Prompt}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return Completion{}, &ProviderError{Message: "marshal request", Err: err}
	}

	target, err := url.Parse(strings.TrimRight(c.cfg.URL, "/"))
	if err != nil {
		return Completion{}, &ProviderError{Message: "invalid provider URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String()+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Completion{}, &ProviderError{Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries only the URL, never headers, so the credential
		// cannot leak through the message.
		if errors.Is(err, context.DeadlineExceeded) {
			return Completion{}, &ProviderError{Message: "request timed out", Err: context.DeadlineExceeded}
		}
		return Completion{}, &ProviderError{Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &ProviderError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Completion{}, classifyStatus(resp.StatusCode, respBody)
	}

	var chatResp models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return Completion{}, &ProviderError{Message: "decode response", Err: err}
	}
	if len(chatResp.Choices) == 0 {
		return Completion{}, &ProviderError{Message: "no choices in response"}
	}

	out := Completion{
		Text:  strings.TrimSpace(chatResp.Choices[0].Message.Content),
		Model: chatResp.Model,
	}
	if out.Model == "" {
		out.Model = c.cfg.Model
	}
	if chatResp.Usage != nil {
		out.Usage = *chatResp.Usage
	}
	return out, nil
}

var _ Completer = (*Client)(nil)

// String hides the credential if a Client is ever printed.
func (c *Client) String() string {
	return fmt.Sprintf("completion.Client{provider=%s model=%s}", c.cfg.Name, c.cfg.Model)
}
