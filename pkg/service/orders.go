package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/shopfront/pkg/events"
	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// cacheRecheck is how long after a status change the cached order is dropped
// again, evicting a copy a concurrent reader loaded before the write.
const cacheRecheck = time.Second

type OrderService struct {
	orders    repository.OrderRepository
	cache     repository.OrderCache
	audit     repository.AuditLogger
	stats     *StatsAggregator
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	recheck time.Duration
}

func NewOrderService(
	orders repository.OrderRepository,
	cache repository.OrderCache,
	audit repository.AuditLogger,
	stats *StatsAggregator,
	publisher events.Publisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		cache:     cache,
		audit:     audit,
		stats:     stats,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		recheck:   cacheRecheck,
	}
}

// GetForUser returns an order placed by userID.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s belongs to another user", models.ErrPermissionDenied, orderID)
	}
	return order, nil
}

// GetForShop returns an order placed with shopID.
func (s *OrderService) GetForShop(ctx context.Context, shopID, orderID string) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ShopID != shopID {
		return nil, fmt.Errorf("%w: order %s belongs to another shop", models.ErrPermissionDenied, orderID)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter models.OrderFilter, withCounts bool) (*models.OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", models.ErrValidation, filter.Status)
	}
	filter.Normalize()

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	page := &models.OrderPage{
		Orders:   orders,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if withCounts {
		if page.StatusCounts, err = s.orders.CountByStatus(ctx, filter); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// UpdateStatus moves an order of shopID to status `to`. The write only lands if
// the order is still in the status the transition was checked against, so the
// counters move exactly once per real change.
func (s *OrderService) UpdateStatus(ctx context.Context, shopID, orderID string, to models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ShopID != shopID {
		return nil, fmt.Errorf("%w: order %s belongs to another shop", models.ErrPermissionDenied, orderID)
	}

	from := order.Status
	if err := from.CheckTransition(to); err != nil {
		return nil, err
	}
	if from == to {
		return order, nil
	}

	if err := s.orders.CompareAndSetStatus(ctx, orderID, from, to); err != nil {
		return nil, err
	}
	order.Status = to
	order.UpdatedAt = s.now()

	log := s.logger.With(zap.String("order_id", orderID), zap.String("shop_id", shopID))
	log.Info("Order status changed", zap.String("from", string(from)), zap.String("to", string(to)))

	if err := s.stats.OrderTransitioned(ctx, shopID, from, to); err != nil {
		log.Error("Failed to record status change in shop stats", zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
			log.Warn("Failed to invalidate order cache", zap.Error(err))
		}
		s.invalidateLater(orderID)
	}

	s.recordTransition(order, from)
	return order, nil
}

func (s *OrderService) invalidateLater(orderID string) {
	time.AfterFunc(s.recheck, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
			s.logger.Warn("Failed to invalidate order cache", zap.String("order_id", orderID), zap.Error(err))
		}
	})
}

func (s *OrderService) get(ctx context.Context, orderID string) (*models.Order, error) {
	if s.cache != nil {
		order, err := s.cache.GetOrder(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Order cache read failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetOrder(ctx, order); err != nil {
			s.logger.Warn("Failed to cache order", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return order, nil
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// History returns the status changes of a shop's order, newest first.
func (s *OrderService) History(ctx context.Context, shopID, orderID string, limit int) ([]*repository.AuditLog, error) {
	if _, err := s.GetForShop(ctx, shopID, orderID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []*repository.AuditLog{}, nil
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	logs, err := s.audit.GetAuditLogs(ctx, orderID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read order history: %w", err)
	}
	if logs == nil {
		logs = []*repository.AuditLog{}
	}
	return logs, nil
}

// recordTransition writes the audit entry and the event off the request path.
func (s *OrderService) recordTransition(order *models.Order, from models.OrderStatus) {
	snapshot := cloneOrder(order)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if s.audit != nil {
			err := s.audit.CreateAuditLog(ctx, &repository.AuditLog{
				Service:  "order-service",
				Action:   "update_order_status",
				EntityID: snapshot.ID,
				Data: bson.M{
					"shop_id": snapshot.ShopID,
					"from":    string(from),
					"to":      string(snapshot.Status),
				},
			})
			if err != nil {
				s.logger.Warn("Failed to write audit log", zap.String("order_id", snapshot.ID), zap.Error(err))
			}
		}
		if s.publisher != nil {
			if err := s.publisher.PublishOrderStatusChanged(ctx, snapshot, from); err != nil {
				s.logger.Warn("Failed to publish order.status_changed event", zap.String("order_id", snapshot.ID), zap.Error(err))
			}
		}
	}()
}
