package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"ragserver/internal/domain"
	"ragserver/internal/port"
)

// Client talks to an OpenAI-compatible chat completions endpoint. Groq,
// OpenAI and local servers all speak this protocol, so the provider is
// selected purely by BaseURL and model name.
type Client struct {
	client *openai.Client
	model  string
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("llm API key is empty")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req port.CompletionRequest) (port.Completion, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return port.Completion{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return port.Completion{}, errors.New("chat completion returned no choices")
	}

	return port.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) ModelName() string {
	return c.model
}
