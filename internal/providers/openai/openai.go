package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matthewgall/epicdeals/internal/config"
	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

var ErrMissingAPIKey = errors.New("completion api key is not configured")

// Client sends single-shot chat completions to an OpenAI-compatible endpoint.
type Client struct {
	client      openaisdk.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	configured  bool
}

func New(cfg *config.CompletionConfig) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &Client{
		client:      openaisdk.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		configured:  strings.TrimSpace(cfg.APIKey) != "",
	}
}

func (c *Client) Configured() bool {
	return c.configured
}

// Complete sends one system and one user message and returns the text of the
// first choice. A reply without choices is an empty answer, not an error.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.configured {
		return "", ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		Model:       shared.ChatModel(c.model),
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(c.maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("requesting completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
