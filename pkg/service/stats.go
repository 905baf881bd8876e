package service

import (
	"context"
	"fmt"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatsAggregator is the only writer of ShopStats. Every change goes through
// ApplyDelta as a relative increment.
type StatsAggregator struct {
	repo   repository.StatsRepository
	logger *zap.Logger
}

func NewStatsAggregator(repo repository.StatsRepository, logger *zap.Logger) *StatsAggregator {
	return &StatsAggregator{repo: repo, logger: logger}
}

func (a *StatsAggregator) ApplyDelta(ctx context.Context, shopID string, delta models.Delta) error {
	if shopID == "" {
		return fmt.Errorf("%w: shop id is required", models.ErrValidation)
	}
	if len(delta) == 0 {
		return nil
	}
	if err := a.repo.ApplyDelta(ctx, shopID, delta); err != nil {
		return err
	}
	a.logger.Debug("Applied stats delta", zap.String("shop_id", shopID), zap.Any("delta", delta))
	return nil
}

func (a *StatsAggregator) Get(ctx context.Context, shopID string) (*models.ShopStats, error) {
	return a.repo.Get(ctx, shopID)
}

// OrderPlaced records a new processing order and, the first time a user buys
// from the shop, a new customer.
func (a *StatsAggregator) OrderPlaced(ctx context.Context, order *models.Order) error {
	if err := a.ApplyDelta(ctx, order.ShopID, OrderPlacedDelta(order)); err != nil {
		return err
	}

	isNew, err := a.repo.AddCustomer(ctx, order.ShopID, order.UserID)
	if err != nil {
		return err
	}
	if isNew {
		return a.ApplyDelta(ctx, order.ShopID, models.Delta{models.CounterCustomers: 1})
	}
	return nil
}

func (a *StatsAggregator) OrderTransitioned(ctx context.Context, shopID string, from, to models.OrderStatus) error {
	return a.ApplyDelta(ctx, shopID, OrderTransitionDelta(from, to))
}

func (a *StatsAggregator) ProductCreated(ctx context.Context, p *models.Product) error {
	return a.ApplyDelta(ctx, p.ShopID, ProductCreatedDelta(p.Status))
}

func (a *StatsAggregator) ProductStatusChanged(ctx context.Context, shopID string, from, to models.ProductStatus) error {
	return a.ApplyDelta(ctx, shopID, ProductTransitionDelta(from, to))
}

func (a *StatsAggregator) ProductDeleted(ctx context.Context, before *models.Product) error {
	return a.ApplyDelta(ctx, before.ShopID, ProductDeletedDelta(before.Status))
}

func OrderPlacedDelta(order *models.Order) models.Delta {
	var sales int64
	for _, item := range order.Items {
		sales += int64(item.Quantity)
	}
	revenue := toCents(decimal.NewFromFloat(order.TotalAmount))
	day := models.DayKey(order.CreatedAt)

	return models.Delta{}.
		Add(models.CounterTotalOrders, 1).
		Add(models.OrderCounter(models.StatusProcessing), 1).
		Add(models.CounterRevenueCents, revenue).
		Add(models.CounterTotalSales, sales).
		Add(models.DailyCounter(day, "orders"), 1).
		Add(models.DailyCounter(day, "revenueCents"), revenue).
		Add(models.DailyCounter(day, "sales"), sales)
}

func OrderTransitionDelta(from, to models.OrderStatus) models.Delta {
	return models.Delta{}.
		Add(models.OrderCounter(from), -1).
		Add(models.OrderCounter(to), 1)
}

func ProductCreatedDelta(status models.ProductStatus) models.Delta {
	return models.Delta{}.
		Add(models.CounterTotalProducts, 1).
		Add(models.ProductCounter(status), 1)
}

func ProductTransitionDelta(from, to models.ProductStatus) models.Delta {
	return models.Delta{}.
		Add(models.ProductCounter(from), -1).
		Add(models.ProductCounter(to), 1)
}

func ProductDeletedDelta(status models.ProductStatus) models.Delta {
	return models.Delta{}.
		Add(models.CounterDeletedProducts, 1).
		Add(models.ProductCounter(status), -1)
}
