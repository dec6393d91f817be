package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CatalogService interface {
	ListCategories(ctx context.Context) ([]*dto.CategoryResponse, error)
	ListPrompts(ctx context.Context, userID string, req *dto.PromptListRequest) (*dto.PromptListResponse, error)
	GetPrompt(ctx context.Context, userID, promptID string) (*dto.PromptResponse, error)
	ListPacks(ctx context.Context) ([]*dto.PackResponse, error)
	GetPack(ctx context.Context, packID string) (*dto.PackResponse, error)
	PromptShareURL(ctx context.Context, promptID string) (string, error)
}

type catalogServiceImpl struct {
	baseURL     string
	catalogRepo repository.CatalogRepository
	userService UserService
}

func NewCatalogService(
	baseURL string,
	catalogRepo repository.CatalogRepository,
	userService UserService,
) CatalogService {
	return &catalogServiceImpl{
		baseURL:     strings.TrimRight(baseURL, "/"),
		catalogRepo: catalogRepo,
		userService: userService,
	}
}

func (s *catalogServiceImpl) ListCategories(ctx context.Context) ([]*dto.CategoryResponse, error) {
	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make([]*dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, &dto.CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	return out, nil
}

// ListPrompts never includes bodies; callers fetch a single prompt to read it.
func (s *catalogServiceImpl) ListPrompts(ctx context.Context, userID string, req *dto.PromptListRequest) (*dto.PromptListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	prompts, total, err := s.catalogRepo.ListPrompts(ctx, repository.PromptFilter{
		CategoryID: req.Category,
		Tag:        req.Tag,
		Query:      req.Query,
		Limit:      limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}

	access, err := s.userService.PromptAccess(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check prompt access: %w", err)
	}

	items := make([]*dto.PromptResponse, 0, len(prompts))
	for _, p := range prompts {
		resp := toPromptResponse(p, access.CanRead(p))
		resp.Body = ""
		items = append(items, resp)
	}

	return &dto.PromptListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: req.Offset,
	}, nil
}

func (s *catalogServiceImpl) GetPrompt(ctx context.Context, userID, promptID string) (*dto.PromptResponse, error) {
	prompt, err := s.catalogRepo.FindPrompt(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}

	canRead, err := s.userService.CanReadPrompt(ctx, userID, prompt)
	if err != nil {
		return nil, fmt.Errorf("check prompt access: %w", err)
	}

	return toPromptResponse(prompt, canRead), nil
}

func toPromptResponse(p *model.Prompt, canRead bool) *dto.PromptResponse {
	resp := &dto.PromptResponse{
		ID:         p.ID,
		Title:      p.Title,
		Summary:    p.Summary,
		CategoryID: p.CategoryID,
		Tags:       nonNil(p.Tags),
		IsFree:     p.IsFree,
		Price:      p.Price.StringFixed(2),
		Locked:     !canRead,
	}
	if canRead {
		resp.Body = p.Body
	}
	return resp
}

func (s *catalogServiceImpl) ListPacks(ctx context.Context) ([]*dto.PackResponse, error) {
	packs, err := s.catalogRepo.ListPacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}

	out := make([]*dto.PackResponse, 0, len(packs))
	for _, p := range packs {
		out = append(out, toPackResponse(p))
	}
	return out, nil
}

func (s *catalogServiceImpl) GetPack(ctx context.Context, packID string) (*dto.PackResponse, error) {
	pack, err := s.catalogRepo.FindPack(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("get pack: %w", err)
	}
	return toPackResponse(pack), nil
}

func toPackResponse(p *model.Pack) *dto.PackResponse {
	ids := make([]string, 0, len(p.Prompts))
	for _, prompt := range p.Prompts {
		ids = append(ids, prompt.ID)
	}

	return &dto.PackResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Price:        p.Price.StringFixed(2),
		PromptIDs:    ids,
		Downloadable: p.AssetKey != "",
	}
}

// PromptShareURL is the public page of a prompt, encoded into share QR codes.
func (s *catalogServiceImpl) PromptShareURL(ctx context.Context, promptID string) (string, error) {
	prompt, err := s.catalogRepo.FindPrompt(ctx, promptID)
	if err != nil {
		return "", fmt.Errorf("get prompt: %w", err)
	}

	return s.baseURL + "/prompts/" + url.PathEscape(prompt.ID), nil
}
