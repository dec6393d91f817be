package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"prompt-storefront/internal/config"
)

type ChatMessage struct {
	Role    string // system, user, assistant
	Content string
}

// AssistantClient runs a single chat completion against an OpenAI-compatible API.
type AssistantClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

type openAIClientImpl struct {
	client *openai.Client
	model  string
}

func NewAssistantClient(cfg *config.OpenAI) AssistantClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openAIClientImpl{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (c *openAIClientImpl) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.4,
		MaxTokens:   900,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
