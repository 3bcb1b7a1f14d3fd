// Package generative wraps a chat-completion endpoint behind a single-shot
// prompt-in, text-out interface.
package generative

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/logging"
)

// DefaultTimeout bounds a single completion request
const DefaultTimeout = 30 * time.Second

// Generator produces free text from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Observer receives one observation per completion request
type Observer interface {
	ObserveGeneration(err error)
}

// Config selects the endpoint and model
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint. Gemini exposes
// one under /v1beta/openai/.
type Client struct {
	client   openai.Client
	model    string
	observer Observer
	logger   *logging.StructuredLogger
}

// Option configures a Client
type Option func(*Client)

// WithObserver attaches a request observer
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger attaches a logger
func WithLogger(l *logging.StructuredLogger) Option {
	return func(c *Client) { c.logger = l }
}

// NewOpenAICompatible creates a Client. Retries are disabled: a failed
// completion surfaces to the caller immediately.
func NewOpenAICompatible(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &Client{
		client: openai.NewClient(requestOpts...),
		model:  cfg.Model,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewStructuredLogger("generative")
	}
	return c
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt as a single user message and returns the first choice
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, prompt)
	if c.observer != nil {
		c.observer.ObserveGeneration(err)
	}
	c.logger.WithContext("model", c.model).
		WithContext("prompt_chars", len(prompt)).
		LogRemoteCall("POST", "chat/completions", 0, time.Since(start), err)
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", errors.NewRemoteError(errors.ErrCodeGenerativeRequestFailed,
			"generative completion request failed", err).
			WithDetails(err.Error())
	}
	if len(completion.Choices) == 0 {
		return "", errors.NewRemoteError(errors.ErrCodeGenerativeRequestFailed,
			"generative completion returned no choices", nil)
	}
	return completion.Choices[0].Message.Content, nil
}

// StripCodeFence extracts the body of a Markdown code fence. A ```json fence
// wins over a bare ``` fence; text without fences is only trimmed.
func StripCodeFence(text string) string {
	const jsonFence = "```json"
	const fence = "```"

	if _, after, ok := strings.Cut(text, jsonFence); ok {
		body, _, _ := strings.Cut(after, fence)
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(text, fence); ok {
		body, _, _ := strings.Cut(after, fence)
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(text)
}
