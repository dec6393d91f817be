package service

import (
	"context"
	"errors"
	"fmt"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
)

// UserService answers what a signed-in user owns.
type UserService interface {
	GetEntitlements(ctx context.Context, userID string) (*dto.EntitlementsResponse, error)
	CanReadPrompt(ctx context.Context, userID string, prompt *model.Prompt) (bool, error)
	CanDownloadPack(ctx context.Context, userID, packID string) (bool, error)
	PromptAccess(ctx context.Context, userID string) (*PromptAccessSet, error)
}

// PromptAccessSet answers CanReadPrompt for many prompts without further queries.
type PromptAccessSet struct {
	subscriber bool
	promptIDs  map[string]bool
}

func (a *PromptAccessSet) CanRead(prompt *model.Prompt) bool {
	return prompt.IsFree || a.subscriber || a.promptIDs[prompt.ID]
}

type userServiceImpl struct {
	entitlementRepo repository.EntitlementRepository
	subscriberRepo  repository.SubscriberRepository
}

func NewUserService(
	entitlementRepo repository.EntitlementRepository,
	subscriberRepo repository.SubscriberRepository,
) UserService {
	return &userServiceImpl{
		entitlementRepo: entitlementRepo,
		subscriberRepo:  subscriberRepo,
	}
}

func (s *userServiceImpl) GetEntitlements(ctx context.Context, userID string) (*dto.EntitlementsResponse, error) {
	promptIDs, err := s.entitlementRepo.ListPromptIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list prompt access: %w", err)
	}

	packIDs, err := s.entitlementRepo.ListPackIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pack access: %w", err)
	}

	resp := &dto.EntitlementsResponse{
		PromptIDs: nonNil(promptIDs),
		PackIDs:   nonNil(packIDs),
		Tier:      string(model.TierFree),
		Status:    string(model.SubscriberInactive),
	}

	sub, err := s.subscriberRepo.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("get subscriber: %w", err)
	default:
		resp.Tier = string(sub.Tier)
		resp.Status = string(sub.Status)
	}

	return resp, nil
}

func (s *userServiceImpl) CanReadPrompt(ctx context.Context, userID string, prompt *model.Prompt) (bool, error) {
	if prompt.IsFree {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}

	ok, err := s.entitlementRepo.HasPromptAccess(ctx, userID, prompt.ID)
	if err != nil || ok {
		return ok, err
	}

	return s.isActiveSubscriber(ctx, userID)
}

func (s *userServiceImpl) CanDownloadPack(ctx context.Context, userID, packID string) (bool, error) {
	ok, err := s.entitlementRepo.HasPackAccess(ctx, userID, packID)
	if err != nil || ok {
		return ok, err
	}

	return s.isActiveSubscriber(ctx, userID)
}

func (s *userServiceImpl) PromptAccess(ctx context.Context, userID string) (*PromptAccessSet, error) {
	set := &PromptAccessSet{promptIDs: map[string]bool{}}
	if userID == "" {
		return set, nil
	}

	active, err := s.isActiveSubscriber(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	if active {
		set.subscriber = true
		return set, nil
	}

	ids, err := s.entitlementRepo.ListReadablePromptIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list readable prompts: %w", err)
	}
	for _, id := range ids {
		set.promptIDs[id] = true
	}

	return set, nil
}

func (s *userServiceImpl) isActiveSubscriber(ctx context.Context, userID string) (bool, error) {
	sub, err := s.subscriberRepo.FindByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.IsActive(), nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
