package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	SetSessionID(ctx context.Context, orderID, sessionID string) error
	UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus) error
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
	GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error)
	ListByUserAndStatus(ctx context.Context, userID string, status model.OrderStatus) ([]*model.Order, error)
	ListPaidSubscriberOrders(ctx context.Context, userID string) ([]*model.Order, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("stripe_session_id = ?", sessionID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) SetSessionID(ctx context.Context, orderID, sessionID string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"stripe_session_id": sessionID,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, orderID string, from, to model.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		}).Error
}

// MarkPaid moves a pending order to paid. It reports false when the order was
// not pending anymore, which happens when another request fulfilled it first.
func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	now := time.Now()
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":     model.OrderStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepoImpl) ListByUserAndStatus(ctx context.Context, userID string, status model.OrderStatus) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// ListPaidSubscriberOrders returns the caller's paid orders that contain a
// lifetime or membership item, newest first.
func (r *orderRepoImpl) ListPaidSubscriberOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	sub := r.db.Model(&model.OrderItem{}).
		Select("order_id").
		Where("item_type IN ?", []model.ItemType{model.ItemTypeLifetime, model.ItemTypeMembership})

	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND status = ? AND id IN (?)", userID, model.OrderStatusPaid, sub).
		Order("paid_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}
