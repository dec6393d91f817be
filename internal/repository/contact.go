package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"prompt-storefront/internal/model"
)

type ContactRepository interface {
	Create(ctx context.Context, msg *model.ContactMessage) error
	CountSince(ctx context.Context, emailHash string, since time.Time) (int64, error)
}

type contactRepoImpl struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepoImpl{db: db}
}

func (r *contactRepoImpl) Create(ctx context.Context, msg *model.ContactMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *contactRepoImpl) CountSince(ctx context.Context, emailHash string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ContactMessage{}).
		Where("email_hash = ? AND created_at >= ?", emailHash, since).
		Count(&count).Error

	return count, err
}
