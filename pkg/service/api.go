package service

import (
	"context"
	"fmt"

	"github.com/example/shopfront/pkg/models"
	"github.com/example/shopfront/pkg/repository"
)

// OrderAPI is the order side of the system as the gateway sees it. Services
// implement it in process; the gRPC client implements it against a remote
// order service.
type OrderAPI interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error)
	GetOrder(ctx context.Context, req GetOrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) (*models.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, req UpdateOrderStatusRequest) (*models.Order, error)
	GetShopStats(ctx context.Context, req GetShopStatsRequest) (*models.ShopStats, error)
	GetOrderHistory(ctx context.Context, req GetOrderHistoryRequest) ([]*repository.AuditLog, error)
}

// GetOrderRequest reads an order as its buyer (UserID) or as the shop that
// received it (ShopID).
type GetOrderRequest struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId,omitempty"`
	ShopID  string `json:"shopId,omitempty"`
}

type ListOrdersRequest struct {
	UserID     string             `json:"userId,omitempty"`
	ShopID     string             `json:"shopId,omitempty"`
	Status     models.OrderStatus `json:"status,omitempty"`
	Page       int                `json:"page,omitempty"`
	PageSize   int                `json:"pageSize,omitempty"`
	WithCounts bool               `json:"withCounts,omitempty"`
}

type UpdateOrderStatusRequest struct {
	ShopID  string             `json:"shopId"`
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
}

type GetShopStatsRequest struct {
	ShopID string `json:"shopId"`
}

type GetOrderHistoryRequest struct {
	ShopID  string `json:"shopId"`
	OrderID string `json:"orderId"`
	Limit   int    `json:"limit,omitempty"`
}

func (r ListOrdersRequest) Filter() models.OrderFilter {
	return models.OrderFilter{
		UserID:   r.UserID,
		ShopID:   r.ShopID,
		Status:   r.Status,
		Page:     r.Page,
		PageSize: r.PageSize,
	}
}

var _ OrderAPI = (*LocalOrderAPI)(nil)

// LocalOrderAPI serves OrderAPI from in-process services.
type LocalOrderAPI struct {
	services *Services
}

func (s *Services) OrderAPI() *LocalOrderAPI {
	return &LocalOrderAPI{services: s}
}

func (l *LocalOrderAPI) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	return l.services.Checkout.Checkout(ctx, req)
}

func (l *LocalOrderAPI) GetOrder(ctx context.Context, req GetOrderRequest) (*models.Order, error) {
	switch {
	case req.OrderID == "":
		return nil, fmt.Errorf("%w: orderId is required", models.ErrValidation)
	case req.ShopID != "":
		return l.services.Orders.GetForShop(ctx, req.ShopID, req.OrderID)
	case req.UserID != "":
		return l.services.Orders.GetForUser(ctx, req.UserID, req.OrderID)
	}
	return nil, fmt.Errorf("%w: userId or shopId is required", models.ErrValidation)
}

func (l *LocalOrderAPI) ListOrders(ctx context.Context, req ListOrdersRequest) (*models.OrderPage, error) {
	if req.UserID == "" && req.ShopID == "" {
		return nil, fmt.Errorf("%w: userId or shopId is required", models.ErrValidation)
	}
	return l.services.Orders.List(ctx, req.Filter(), req.WithCounts)
}

func (l *LocalOrderAPI) UpdateOrderStatus(ctx context.Context, req UpdateOrderStatusRequest) (*models.Order, error) {
	if req.ShopID == "" || req.OrderID == "" {
		return nil, fmt.Errorf("%w: shopId and orderId are required", models.ErrValidation)
	}
	return l.services.Orders.UpdateStatus(ctx, req.ShopID, req.OrderID, req.Status)
}

func (l *LocalOrderAPI) GetShopStats(ctx context.Context, req GetShopStatsRequest) (*models.ShopStats, error) {
	if req.ShopID == "" {
		return nil, fmt.Errorf("%w: shopId is required", models.ErrValidation)
	}
	return l.services.Stats.Get(ctx, req.ShopID)
}

func (l *LocalOrderAPI) GetOrderHistory(ctx context.Context, req GetOrderHistoryRequest) ([]*repository.AuditLog, error) {
	if req.ShopID == "" || req.OrderID == "" {
		return nil, fmt.Errorf("%w: shopId and orderId are required", models.ErrValidation)
	}
	return l.services.Orders.History(ctx, req.ShopID, req.OrderID, req.Limit)
}
