package service

import (
	"context"
	"fmt"
	"strings"

	"prompt-storefront/internal/client"
	"prompt-storefront/internal/common"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
)

const enhanceSystemPrompt = `You improve prompts for large language models.
Rewrite the user's prompt so it states the role, the task, the context the model needs,
constraints and the expected output format. Keep the user's intent and language.
Reply with the improved prompt only, without commentary.`

type AssistantService interface {
	EnhancePrompt(ctx context.Context, req *dto.EnhancePromptRequest) (*dto.EnhancePromptResponse, error)
}

type assistantServiceImpl struct {
	log             logging.Logger
	assistantClient client.AssistantClient
}

// NewAssistantService accepts a nil client when no API key is configured.
func NewAssistantService(log logging.Logger, assistantClient client.AssistantClient) AssistantService {
	return &assistantServiceImpl{
		log:             log,
		assistantClient: assistantClient,
	}
}

func (s *assistantServiceImpl) EnhancePrompt(ctx context.Context, req *dto.EnhancePromptRequest) (*dto.EnhancePromptResponse, error) {
	if s.assistantClient == nil {
		return nil, fmt.Errorf("%w: prompt assistant is not configured", common.ErrUnavailable)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", common.ErrValidation)
	}

	var user strings.Builder
	user.WriteString("Prompt:\n")
	user.WriteString(prompt)
	if goal := strings.TrimSpace(req.Goal); goal != "" {
		user.WriteString("\n\nGoal: ")
		user.WriteString(goal)
	}
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		user.WriteString("\nTone: ")
		user.WriteString(tone)
	}

	out, err := s.assistantClient.Complete(ctx, []client.ChatMessage{
		{Role: "system", Content: enhanceSystemPrompt},
		{Role: "user", Content: user.String()},
	})
	if err != nil {
		s.log.Error(ctx, "prompt enhancement failed", "error", err)
		return nil, fmt.Errorf("%w: prompt assistant failed", common.ErrUnavailable)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("%w: prompt assistant returned nothing", common.ErrUnavailable)
	}

	return &dto.EnhancePromptResponse{Prompt: out}, nil
}
