package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oggyb/galatea/internal/config"
	"github.com/oggyb/galatea/internal/metrics"
)

const chatCompletionsPath = "/v1/chat/completions"

// ErrEmptyCompletion is returned when upstream answers 2xx without any text.
var ErrEmptyCompletion = errors.New("completion: no response generated")

// UpstreamError carries a non-2xx answer from the completion service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion: upstream status %d: %s", e.Status, e.Body)
}

// Generator produces a companion's next message.
type Generator interface {
	GenerateReply(ctx context.Context, persona Persona, user UserContext, userMessage string, history []Turn) (string, error)
}

// Options tune the request body; zero values fall back to defaults.
type Options struct {
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	HistoryWindow    int
	Timeout          time.Duration
}

// OptionsFromConfig maps the completion section of the app config.
func OptionsFromConfig(cfg *config.Config) Options {
	c := cfg.Completion
	return Options{
		BaseURL:          c.BaseURL,
		APIKey:           c.APIKey,
		Model:            c.Model,
		Temperature:      c.Temperature,
		MaxTokens:        c.MaxTokens,
		PresencePenalty:  c.PresencePenalty,
		FrequencyPenalty: c.FrequencyPenalty,
		HistoryWindow:    c.HistoryWindow,
		Timeout:          c.Timeout,
	}
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
// One request per reply: no retries, no streaming.
type Client struct {
	opts       Options
	baseURL    string
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("completion: base url required")
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		opts:       opts,
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: tr, Timeout: opts.Timeout},
	}, nil
}

// NewWithHTTPClient is intended for tests that point at an httptest server.
func NewWithHTTPClient(opts Options, hc *http.Client) (*Client, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if hc != nil {
		c.httpClient = hc
	}
	return c, nil
}

// HistoryWindow is the number of past turns sent with each request.
func (c *Client) HistoryWindow() int { return c.opts.HistoryWindow }

type chatRequest struct {
	Model            string  `json:"model"`
	Messages         []Turn  `json:"messages"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateReply sends persona, capped history and the new message upstream
// and returns the raw completion text.
//
// Behavior:
//   - history is trimmed to the last HistoryWindow turns.
//   - non-2xx answers return *UpstreamError; empty text returns ErrEmptyCompletion.
func (c *Client) GenerateReply(ctx context.Context, persona Persona, user UserContext, userMessage string, history []Turn) (reply string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCompletion(start, err) }()

	return c.complete(ctx, BuildMessages(persona, user, history, userMessage, c.opts.HistoryWindow))
}

// complete runs one chat-completions round trip and returns the first choice.
func (c *Client) complete(ctx context.Context, messages []Turn) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:            c.opts.Model,
		Messages:         messages,
		Temperature:      c.opts.Temperature,
		MaxTokens:        c.opts.MaxTokens,
		PresencePenalty:  c.opts.PresencePenalty,
		FrequencyPenalty: c.opts.FrequencyPenalty,
	})
	if err != nil {
		return "", fmt.Errorf("completion: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("completion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("completion: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("completion: decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
