package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prompt-storefront/internal/model"
)

type EntitlementRepository interface {
	GrantPrompt(ctx context.Context, tx *gorm.DB, userID, promptID, orderID string) error
	GrantPack(ctx context.Context, tx *gorm.DB, userID, packID, orderID string) error
	HasPromptAccess(ctx context.Context, userID, promptID string) (bool, error)
	HasPackAccess(ctx context.Context, userID, packID string) (bool, error)
	ListPromptIDs(ctx context.Context, userID string) ([]string, error)
	ListPackIDs(ctx context.Context, userID string) ([]string, error)
	ListReadablePromptIDs(ctx context.Context, userID string) ([]string, error)
}

type entitlementRepoImpl struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) EntitlementRepository {
	return &entitlementRepoImpl{
		db: db,
	}
}

// GrantPrompt is idempotent: a second grant for the same pair is a no-op.
func (r *entitlementRepoImpl) GrantPrompt(ctx context.Context, tx *gorm.DB, userID, promptID, orderID string) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PromptAccess{
			UserID:    userID,
			PromptID:  promptID,
			OrderID:   orderID,
			GrantedAt: time.Now(),
		}).Error
}

func (r *entitlementRepoImpl) GrantPack(ctx context.Context, tx *gorm.DB, userID, packID, orderID string) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PackAccess{
			UserID:    userID,
			PackID:    packID,
			OrderID:   orderID,
			GrantedAt: time.Now(),
		}).Error
}

// HasPromptAccess checks direct grants and grants through an owned pack.
func (r *entitlementRepoImpl) HasPromptAccess(ctx context.Context, userID, promptID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PromptAccess{}).
		Where("user_id = ? AND prompt_id = ?", userID, promptID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).Table("pack_accesses").
		Joins("JOIN pack_prompts ON pack_prompts.pack_id = pack_accesses.pack_id").
		Where("pack_accesses.user_id = ? AND pack_prompts.prompt_id = ?", userID, promptID).
		Count(&count).Error

	return count > 0, err
}

func (r *entitlementRepoImpl) HasPackAccess(ctx context.Context, userID, packID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PackAccess{}).
		Where("user_id = ? AND pack_id = ?", userID, packID).
		Count(&count).Error

	return count > 0, err
}

func (r *entitlementRepoImpl) ListPromptIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.PromptAccess{}).
		Where("user_id = ?", userID).
		Order("prompt_id").
		Pluck("prompt_id", &ids).Error

	return ids, err
}

func (r *entitlementRepoImpl) ListPackIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.PackAccess{}).
		Where("user_id = ?", userID).
		Order("pack_id").
		Pluck("pack_id", &ids).Error

	return ids, err
}

// ListReadablePromptIDs returns the prompts granted directly or through an owned pack.
func (r *entitlementRepoImpl) ListReadablePromptIDs(ctx context.Context, userID string) ([]string, error) {
	direct, err := r.ListPromptIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var viaPack []string
	err = r.db.WithContext(ctx).Table("pack_prompts").
		Joins("JOIN pack_accesses ON pack_accesses.pack_id = pack_prompts.pack_id").
		Where("pack_accesses.user_id = ?", userID).
		Distinct("pack_prompts.prompt_id").
		Pluck("pack_prompts.prompt_id", &viaPack).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(direct)+len(viaPack))
	ids := make([]string, 0, len(direct)+len(viaPack))
	for _, id := range append(direct, viaPack...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}
