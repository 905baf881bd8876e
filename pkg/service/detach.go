package service

import (
	"context"
	"fmt"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"go.uber.org/zap"
)

// Retrier takes over detachments that failed inline. Implementations must
// tolerate the same order being handed over more than once.
type Retrier interface {
	Retry(order *models.Order)
}

// Detacher finishes the second step of checkout: it removes the shop slice an
// order was created from and flags the order. Both writes are idempotent, and
// slices created after the order are left alone.
type Detacher struct {
	carts  repository.CartRepository
	orders repository.OrderRepository
	cache  repository.OrderCache
	logger *zap.Logger
}

func NewDetacher(carts repository.CartRepository, orders repository.OrderRepository, cache repository.OrderCache, logger *zap.Logger) *Detacher {
	return &Detacher{carts: carts, orders: orders, cache: cache, logger: logger}
}

func (d *Detacher) Detach(ctx context.Context, order *models.Order) error {
	notAfter := order.SliceCreatedAt
	if notAfter.IsZero() {
		notAfter = order.CreatedAt
	}
	if err := d.carts.DetachShop(ctx, order.UserID, order.ShopID, notAfter); err != nil {
		return err
	}
	if err := d.orders.MarkCartDetached(ctx, order.ID); err != nil {
		return err
	}
	order.CartDetached = true

	if d.cache != nil {
		if err := d.cache.InvalidateOrder(ctx, order.ID); err != nil {
			d.logger.Warn("Failed to invalidate order cache", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return nil
}

// Reconcile detaches every slice whose order was committed but never detached,
// then drops empty slices. It runs before cart reads and writes.
func (d *Detacher) Reconcile(ctx context.Context, userID string) error {
	pending, err := d.orders.ListUndetached(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list undetached orders: %w", err)
	}
	for _, order := range pending {
		if err := d.Detach(ctx, order); err != nil {
			return fmt.Errorf("failed to detach shop %s for order %s: %w", order.ShopID, order.ID, err)
		}
		d.logger.Info("Reconciled cart slice",
			zap.String("user_id", userID),
			zap.String("shop_id", order.ShopID),
			zap.String("order_id", order.ID))
	}
	return d.carts.PruneEmpty(ctx, userID)
}
