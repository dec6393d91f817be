package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prompt-storefront/internal/model"
)

type NewsletterRepository interface {
	// Subscribe stores the signup and reports whether a new row was created.
	Subscribe(ctx context.Context, signup *model.NewsletterSignup) (bool, error)
}

type newsletterRepoImpl struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) NewsletterRepository {
	return &newsletterRepoImpl{db: db}
}

func (r *newsletterRepoImpl) Subscribe(ctx context.Context, signup *model.NewsletterSignup) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email_hash"}},
		DoNothing: true,
	}).Create(signup)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
