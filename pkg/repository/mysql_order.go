package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/config"
	"github.com/example/shopfront/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type OrderRepositoryMySQL struct {
	db *gorm.DB
}

func NewOrderRepositoryMySQL(cfg *config.MySQLConfig) (*OrderRepositoryMySQL, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get MySQL handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.AutoMigrate(&models.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return NewOrderRepositoryGorm(db), nil
}

// NewOrderRepositoryGorm wraps an already opened and migrated handle.
func NewOrderRepositoryGorm(db *gorm.DB) *OrderRepositoryMySQL {
	return &OrderRepositoryMySQL{db: db}
}

func (r *OrderRepositoryMySQL) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if r.sliceOrdered(ctx, order) {
				return fmt.Errorf("%w: shop %s for user %s", models.ErrSliceOrdered, order.ShopID, order.UserID)
			}
			return fmt.Errorf("%w: order %s or tracking id %d already exists", models.ErrConflict, order.ID, order.TrackingID)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// sliceOrdered reports whether a duplicate key came from idx_orders_slice.
func (r *OrderRepositoryMySQL) sliceOrdered(ctx context.Context, order *models.Order) bool {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ? AND shop_id = ? AND slice_created_at = ?", order.UserID, order.ShopID, order.SliceCreatedAt).
		Count(&count).Error
	return err == nil && count > 0
}

func (r *OrderRepositoryMySQL) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepositoryMySQL) List(ctx context.Context, filter models.OrderFilter) ([]*models.Order, int64, error) {
	filter.Normalize()

	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []*models.Order
	err := r.scoped(ctx, filter).
		Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset()).Limit(filter.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *OrderRepositoryMySQL) CountByStatus(ctx context.Context, filter models.OrderFilter) (map[models.OrderStatus]int64, error) {
	filter.Status = ""

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := r.scoped(ctx, filter).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *OrderRepositoryMySQL) CompareAndSetStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, orderID); err != nil {
			return err
		}
		return fmt.Errorf("%w: order %s is no longer %s", models.ErrConflict, orderID, from)
	}
	return nil
}

func (r *OrderRepositoryMySQL) MarkCartDetached(ctx context.Context, orderID string) error {
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("cart_detached", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark cart detached: %w", err)
	}
	return nil
}

func (r *OrderRepositoryMySQL) ListUndetached(ctx context.Context, userID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND cart_detached = ?", userID, false).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list undetached orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepositoryMySQL) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *OrderRepositoryMySQL) scoped(ctx context.Context, filter models.OrderFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ShopID != "" {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}
