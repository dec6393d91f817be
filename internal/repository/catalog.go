package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/model"
)

type PromptFilter struct {
	CategoryID string
	Tag        string
	Query      string
	Limit      int
	Offset     int
}

type CatalogRepository interface {
	Seed(ctx context.Context) error
	ListCategories(ctx context.Context) ([]*model.Category, error)
	ListPrompts(ctx context.Context, filter PromptFilter) ([]*model.Prompt, int64, error)
	FindPrompt(ctx context.Context, promptID string) (*model.Prompt, error)
	FindPrompts(ctx context.Context, promptIDs []string) ([]*model.Prompt, error)
	ListPacks(ctx context.Context) ([]*model.Pack, error)
	FindPack(ctx context.Context, packID string) (*model.Pack, error)
	FindPacks(ctx context.Context, packIDs []string) ([]*model.Pack, error)
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{
		db: db,
	}
}

// Seed inserts the demo catalog. Existing rows are left as they are.
func (r *catalogRepoImpl) Seed(ctx context.Context) error {
	categories := []model.Category{
		{ID: "marketing", Name: "Marketing", Description: "Copy, campaigns and positioning", SortOrder: 1},
		{ID: "coding", Name: "Coding", Description: "Reviews, refactors and debugging", SortOrder: 2},
		{ID: "writing", Name: "Writing", Description: "Long-form and editing", SortOrder: 3},
	}

	prompts := []model.Prompt{
		{ID: "cold-email-opener", Title: "Cold email opener", Summary: "Three openers tailored to a prospect",
			Body: "You are a B2B copywriter. Write three cold email openers for {{prospect}} ...", CategoryID: "marketing",
			Tags: []string{"email", "sales"}, IsFree: true, Price: decimal.Zero},
		{ID: "landing-page-hero", Title: "Landing page hero", Summary: "Headline and subhead variations",
			Body: "Act as a conversion copywriter. Given the product {{product}} ...", CategoryID: "marketing",
			Tags: []string{"copy", "conversion"}, Price: decimal.RequireFromString("4.99")},
		{ID: "code-reviewer", Title: "Strict code reviewer", Summary: "A reviewer that flags risky changes",
			Body: "Review the following diff as a senior engineer. List blocking issues first ...", CategoryID: "coding",
			Tags: []string{"review", "quality"}, Price: decimal.RequireFromString("6.99")},
		{ID: "bug-hunter", Title: "Bug hunter", Summary: "Systematic debugging walkthrough",
			Body: "Given the error and stack trace below, form three hypotheses ...", CategoryID: "coding",
			Tags: []string{"debugging"}, Price: decimal.RequireFromString("5.99")},
		{ID: "essay-editor", Title: "Essay editor", Summary: "Tightens structure and tone",
			Body: "Edit the essay for clarity. Keep the author's voice ...", CategoryID: "writing",
			Tags: []string{"editing"}, IsFree: true, Price: decimal.Zero},
	}

	packs := []model.Pack{
		{ID: "growth-pack", Title: "Growth power pack", Description: "Marketing prompts for launches",
			Price: decimal.RequireFromString("19.00"), AssetKey: "packs/growth-pack.zip"},
		{ID: "dev-pack", Title: "Developer power pack", Description: "Reviews and debugging prompts",
			Price: decimal.RequireFromString("24.00"), AssetKey: "packs/dev-pack.zip"},
	}

	links := map[string][]string{
		"growth-pack": {"cold-email-opener", "landing-page-hero"},
		"dev-pack":    {"code-reviewer", "bug-hunter"},
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&prompts).Error; err != nil {
			return err
		}
		if err := tx.Omit("Prompts").Clauses(clause.OnConflict{DoNothing: true}).Create(&packs).Error; err != nil {
			return err
		}

		for packID, promptIDs := range links {
			rows := make([]map[string]interface{}, 0, len(promptIDs))
			for _, promptID := range promptIDs {
				rows = append(rows, map[string]interface{}{"pack_id": packID, "prompt_id": promptID})
			}
			if err := tx.Table("pack_prompts").Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *catalogRepoImpl) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	err := r.db.WithContext(ctx).
		Order("sort_order, id").
		Find(&categories).Error

	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *catalogRepoImpl) ListPrompts(ctx context.Context, filter PromptFilter) ([]*model.Prompt, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Prompt{})

	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Tag != "" {
		// tags are stored as a JSON array
		query = query.Where("tags LIKE ?", `%"`+escapeLike(filter.Tag)+`"%`)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(escapeLike(q)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var prompts []*model.Prompt
	err := query.
		Order("title, id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&prompts).Error

	if err != nil {
		return nil, 0, err
	}

	return prompts, total, nil
}

func (r *catalogRepoImpl) FindPrompt(ctx context.Context, promptID string) (*model.Prompt, error) {
	var prompt model.Prompt
	err := r.db.WithContext(ctx).
		Where("id = ?", promptID).
		First(&prompt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return &prompt, nil
}

func (r *catalogRepoImpl) FindPrompts(ctx context.Context, promptIDs []string) ([]*model.Prompt, error) {
	var prompts []*model.Prompt
	err := r.db.WithContext(ctx).
		Where("id IN ?", promptIDs).
		Find(&prompts).
		Error

	if err != nil {
		return nil, err
	}

	return prompts, nil
}

func (r *catalogRepoImpl) ListPacks(ctx context.Context) ([]*model.Pack, error) {
	var packs []*model.Pack
	err := r.db.WithContext(ctx).
		Preload("Prompts", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Order("title, id").
		Find(&packs).Error

	if err != nil {
		return nil, err
	}

	return packs, nil
}

func (r *catalogRepoImpl) FindPack(ctx context.Context, packID string) (*model.Pack, error) {
	var pack model.Pack
	err := r.db.WithContext(ctx).
		Preload("Prompts", func(db *gorm.DB) *gorm.DB { return db.Order("title") }).
		Where("id = ?", packID).
		First(&pack).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return &pack, nil
}

func (r *catalogRepoImpl) FindPacks(ctx context.Context, packIDs []string) ([]*model.Pack, error) {
	var packs []*model.Pack
	err := r.db.WithContext(ctx).
		Where("id IN ?", packIDs).
		Find(&packs).
		Error

	if err != nil {
		return nil, err
	}

	return packs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
